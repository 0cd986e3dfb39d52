package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ykvlv/water-reminder-bot/internal/registry"
)

//go:generate mockgen -source=./dispatcher.go -destination=./mocks/dispatcher.mock.go -package=dispatchermocks

const defaultSendTimeout = 10 * time.Second

// Sender is the external send primitive. telegram.Sender implements it.
type Sender interface {
	Send(ctx context.Context, chatID registry.ChatID, text string) error
}

// Registry is the part of the subscriber registry the dispatcher needs.
type Registry interface {
	Snapshot() []registry.ChatID
	Remove(id registry.ChatID) bool
}

// Options tune delivery.
type Options struct {
	// SendTimeout bounds a single send; <=0 means 10s.
	SendTimeout time.Duration
	// RatePerSec throttles sends; <=0 disables throttling.
	RatePerSec int
	// EvictAfter is the number of consecutive failures after which a
	// recipient is removed from the registry; <=0 disables eviction.
	EvictAfter int
}

// BatchResult summarizes one broadcast.
type BatchResult struct {
	ID        string
	Attempted int
	Succeeded int
	Failed    int
	Evicted   int
	Failures  []DeliveryFailure
	Duration  time.Duration
}

// Dispatcher delivers one message to every current subscriber.
type Dispatcher struct {
	reg     Registry
	sender  Sender
	log     *zap.Logger
	opts    Options
	limiter *rate.Limiter

	mu       sync.Mutex
	failures map[registry.ChatID]int // consecutive failures per chat
}

// New creates a Dispatcher.
func New(reg Registry, sender Sender, log *zap.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	d := &Dispatcher{
		reg:      reg,
		sender:   sender,
		log:      log,
		opts:     opts,
		failures: make(map[registry.ChatID]int),
	}
	if opts.RatePerSec > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	return d
}

// Broadcast sends message once to each subscriber in a registry snapshot.
// Per-recipient failures are counted and logged, never returned. The batch
// ignores cancellation of ctx; only SendTimeout bounds each send. A non-nil
// error is always an *UnexpectedDispatchError.
func (d *Dispatcher) Broadcast(ctx context.Context, message string) (res BatchResult, err error) {
	res.ID = uuid.NewString()
	start := time.Now()
	log := d.log.With(zap.String("batch", res.ID))
	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			err = &UnexpectedDispatchError{BatchID: res.ID, Cause: r, Stack: debug.Stack()}
		}
	}()

	ids := d.reg.Snapshot()
	if len(ids) == 0 {
		log.Info("no subscribers, reminder skipped")
		return res, nil
	}

	ctx = context.WithoutCancel(ctx)
	log.Info("sending reminders", zap.Int("subscribers", len(ids)))

	for _, id := range ids {
		res.Attempted++
		if sendErr := d.sendOne(ctx, id, message); sendErr != nil {
			res.Failed++
			res.Failures = append(res.Failures, DeliveryFailure{ChatID: id, Err: sendErr})
			log.Error("send failed", zap.Int64("chatID", id), zap.Error(sendErr))
			if d.recordFailure(id) {
				res.Evicted++
				log.Warn("subscriber evicted", zap.Int64("chatID", id))
			}
			continue
		}
		res.Succeeded++
		d.Forget(id)
		log.Debug("reminder sent", zap.Int64("chatID", id))
	}

	log.Info("reminders sent",
		zap.Int("ok", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("evicted", res.Evicted),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

// sendOne performs a single bounded attempt. A sender that ignores its
// context is abandoned once the timeout fires.
func (d *Dispatcher) sendOne(ctx context.Context, id registry.ChatID, text string) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: %v", ErrSendPanic, r)
			}
		}()
		done <- d.sender.Send(sendCtx, id, text)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %w", ErrSendTimeout, d.opts.SendTimeout, err)
		}
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("%w after %s", ErrSendTimeout, d.opts.SendTimeout)
	}
}

// recordFailure bumps the consecutive failure counter and evicts the chat
// once it reaches EvictAfter. It reports whether the chat was evicted.
func (d *Dispatcher) recordFailure(id registry.ChatID) bool {
	if d.opts.EvictAfter <= 0 {
		return false
	}
	d.mu.Lock()
	d.failures[id]++
	n := d.failures[id]
	if n >= d.opts.EvictAfter {
		delete(d.failures, id)
	}
	d.mu.Unlock()

	if n < d.opts.EvictAfter {
		return false
	}
	return d.reg.Remove(id)
}

// Forget drops the failure history of a chat.
func (d *Dispatcher) Forget(id registry.ChatID) {
	d.mu.Lock()
	delete(d.failures, id)
	d.mu.Unlock()
}

// FailureCount returns the current consecutive failure count of a chat.
func (d *Dispatcher) FailureCount(id registry.ChatID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures[id]
}
