// Package reminder wires the calendar, registry, dispatcher and scheduler into
// the single core instance used by the command surface.
package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
	"github.com/ykvlv/water-reminder-bot/internal/registry"
	"github.com/ykvlv/water-reminder-bot/internal/scheduler"
)

// Service is the reminder engine exposed to the command surface.
type Service struct {
	cal       *domain.Calendar
	reg       *registry.Registry
	disp      *dispatcher.Dispatcher
	sched     *scheduler.Scheduler
	broadcast scheduler.Broadcaster
	log       *zap.Logger
}

// Options bundle the tunables of the engine.
type Options struct {
	Dispatch dispatcher.Options
	Schedule scheduler.Options
	// Wrap optionally decorates the broadcaster (metrics, tracing).
	Wrap func(scheduler.Broadcaster) scheduler.Broadcaster
}

// New builds the engine around an injected registry and send primitive.
func New(cal *domain.Calendar, reg *registry.Registry, sender dispatcher.Sender, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	disp := dispatcher.New(reg, sender, log.Named("dispatcher"), opts.Dispatch)

	var b scheduler.Broadcaster = disp
	if opts.Wrap != nil {
		b = opts.Wrap(b)
	}

	return &Service{
		cal:       cal,
		reg:       reg,
		disp:      disp,
		sched:     scheduler.New(cal, b, log.Named("scheduler"), opts.Schedule),
		broadcast: b,
		log:       log,
	}
}

// Run runs the scheduler loop until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.sched.Run(ctx)
	return nil
}

// Subscribe adds a chat; false means it was already subscribed.
func (s *Service) Subscribe(id registry.ChatID) bool {
	ok := s.reg.Add(id)
	if ok {
		s.log.Info("subscribed", zap.Int64("chatID", id))
	}
	return ok
}

// Unsubscribe removes a chat; false means it was not subscribed.
func (s *Service) Unsubscribe(id registry.ChatID) bool {
	ok := s.reg.Remove(id)
	if ok {
		s.disp.Forget(id)
		s.log.Info("unsubscribed", zap.Int64("chatID", id))
	}
	return ok
}

func (s *Service) IsSubscribed(id registry.ChatID) bool { return s.reg.Contains(id) }

func (s *Service) SubscriberCount() int { return s.reg.Len() }

// NextReminder returns the next trigger instant strictly after now.
func (s *Service) NextReminder(now time.Time) (time.Time, bool) {
	return s.sched.NextReminder(now)
}

// TriggerTimes returns the configured triggers in ascending order.
func (s *Service) TriggerTimes() []domain.TriggerTime { return s.cal.Times() }

// ListTriggerTimes returns the triggers as "HH:MM".
func (s *Service) ListTriggerTimes() []string { return s.cal.Strings() }

func (s *Service) Message() string { return s.cal.Message() }

// TestBroadcast sends the reminder now, bypassing the schedule and its fired marks.
func (s *Service) TestBroadcast(ctx context.Context) (dispatcher.BatchResult, error) {
	s.log.Info("manual broadcast requested")
	return s.broadcast.Broadcast(ctx, s.cal.Message())
}
