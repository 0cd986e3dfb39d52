package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/water-reminder-bot/internal/dispatcher"
	"github.com/ykvlv/water-reminder-bot/internal/domain"
)

const (
	defaultInterval  = 30 * time.Second
	maxInterval      = 60 * time.Second
	defaultTolerance = 5 * time.Minute
)

// Broadcaster delivers one reminder to all subscribers.
// dispatcher.Dispatcher implements this.
type Broadcaster interface {
	Broadcast(ctx context.Context, message string) (dispatcher.BatchResult, error)
}

// Options configure the poll loop.
type Options struct {
	// Interval between polls; defaults to 30s and is capped at 60s.
	Interval time.Duration
	// Tolerance is how late a trigger may still fire, also across midnight;
	// <=0 means 5m.
	Tolerance time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// Scheduler polls the calendar and fires each trigger at most once per day.
type Scheduler struct {
	cal         *domain.Calendar
	broadcaster Broadcaster
	log         *zap.Logger
	interval    time.Duration
	tolerance   time.Duration
	now         func() time.Time

	mu    sync.Mutex
	day   string // date of the last tick
	fired map[mark]struct{}
}

// mark identifies one dated occurrence of a trigger.
type mark struct {
	day     string // occurrence date, "2006-01-02"
	minutes int
}

// New creates a new Scheduler.
func New(cal *domain.Calendar, b Broadcaster, log *zap.Logger, opts Options) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Interval > maxInterval {
		opts.Interval = maxInterval
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = defaultTolerance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		cal:         cal,
		broadcaster: b,
		log:         log,
		interval:    opts.Interval,
		tolerance:   opts.Tolerance,
		now:         opts.Now,
		fired:       make(map[mark]struct{}),
	}
}

// Run polls immediately and then on every interval until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started",
		zap.Strings("times", s.cal.Strings()),
		zap.Duration("interval", s.interval),
		zap.Duration("tolerance", s.tolerance),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one scheduling cycle and returns how many triggers fired.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()

	var due []domain.Firing
	s.mu.Lock()
	if day := now.Format(time.DateOnly); day != s.day {
		if s.day != "" {
			s.log.Debug("day rolled over", zap.String("day", day))
		}
		s.day = day
		s.prune(now)
	}
	if s.cal.IsDue(now, s.tolerance, s.firedLocked) {
		for _, f := range s.cal.Due(now, s.tolerance) {
			if s.firedLocked(f) {
				continue
			}
			// Mark before sending so a failing broadcast is not retried every tick.
			s.fired[markOf(f)] = struct{}{}
			due = append(due, f)
		}
	}
	s.mu.Unlock()

	for _, f := range due {
		s.fire(ctx, f)
	}
	return len(due)
}

// prune drops marks of occurrences older than yesterday; those can no longer
// be due.
func (s *Scheduler) prune(now time.Time) {
	yesterday := time.Date(now.Year(), now.Month(), now.Day()-1, 0, 0, 0, 0, now.Location()).Format(time.DateOnly)
	for m := range s.fired {
		if m.day < yesterday {
			delete(s.fired, m)
		}
	}
}

func (s *Scheduler) firedLocked(f domain.Firing) bool {
	_, ok := s.fired[markOf(f)]
	return ok
}

func (s *Scheduler) fire(ctx context.Context, f domain.Firing) {
	log := s.log.With(
		zap.String("trigger", f.Trigger.String()),
		zap.String("day", f.Day()),
		zap.Bool("transient", f.Trigger.Transient),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected dispatch error", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	log.Info("trigger fired")
	res, err := s.broadcaster.Broadcast(ctx, s.cal.Message())
	if err != nil {
		log.Error("unexpected dispatch error", zap.Error(err), zap.String("batch", res.ID))
		return
	}
	log.Info("trigger done",
		zap.String("batch", res.ID),
		zap.Int("attempted", res.Attempted),
		zap.Int("ok", res.Succeeded),
		zap.Int("failed", res.Failed),
	)
}

// Fired reports whether tt has already fired on the current day.
func (s *Scheduler) Fired(tt domain.TriggerTime) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firedLocked(domain.Firing{Trigger: tt, At: tt.On(now)})
}

// NextReminder returns the next trigger instant after now. It does not touch
// the fired marks.
func (s *Scheduler) NextReminder(now time.Time) (time.Time, bool) {
	return s.cal.NextTrigger(now)
}

func markOf(f domain.Firing) mark {
	return mark{day: f.Day(), minutes: f.Trigger.Minutes()}
}
