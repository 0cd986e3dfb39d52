package dispatcher

import (
	"errors"
	"fmt"

	"github.com/ykvlv/water-reminder-bot/internal/registry"
)

var (
	ErrSendTimeout = errors.New("send timed out")
	ErrSendPanic   = errors.New("sender panicked")
)

// DeliveryFailure is a single recipient's failed send. It never escapes a batch.
type DeliveryFailure struct {
	ChatID registry.ChatID
	Err    error
}

func (f DeliveryFailure) Error() string {
	return fmt.Sprintf("deliver to %d: %v", f.ChatID, f.Err)
}

func (f DeliveryFailure) Unwrap() error { return f.Err }

// UnexpectedDispatchError is an error that escaped per-recipient isolation,
// i.e. a bug in batch bookkeeping rather than a delivery problem.
type UnexpectedDispatchError struct {
	BatchID string
	Cause   any
	Stack   []byte
}

func (e *UnexpectedDispatchError) Error() string {
	return fmt.Sprintf("unexpected dispatch error in batch %s: %v", e.BatchID, e.Cause)
}

func (e *UnexpectedDispatchError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
