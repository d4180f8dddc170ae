package ledger

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Every failure is local to a single operation;
// nothing here is fatal and the engine never retries on its own.
var (
	// ErrInvalidReference indicates a request named a record that does not
	// exist or is not accessible, e.g. an unknown target account on a
	// transfer.
	ErrInvalidReference = errors.New("referenced record not found")

	// ErrUnsupportedOperation indicates a request asked for something the
	// engine deliberately does not do. Not a bug and not retryable.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrCurrencyMismatch is the one unsupported operation today:
	// transferring between accounts with different currencies. No
	// conversion is attempted.
	ErrCurrencyMismatch = fmt.Errorf("%w: transfers between different currencies", ErrUnsupportedOperation)
)

// ValidationError reports a malformed or contradictory request. Field names
// the offending input when one field is at fault; it is empty for
// contradictions between fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AtomicityError wraps a storage failure partway through a multi-row write.
// By the time the caller sees it the whole operation has been rolled back,
// so resubmitting the same request is safe.
type AtomicityError struct {
	Err error
	Op  string
}

func (e *AtomicityError) Error() string {
	return fmt.Sprintf("%s was rolled back: %v", e.Op, e.Err)
}

func (e *AtomicityError) Unwrap() error {
	return e.Err
}

func atomicityErr(op string, err error) error {
	return &AtomicityError{Op: op, Err: err}
}
