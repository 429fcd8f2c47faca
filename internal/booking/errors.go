package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-sql-driver/mysql"

	"github.com/GHtech935/glampinghub/internal/availability"
	"github.com/GHtech935/glampinghub/internal/model"
	"github.com/GHtech935/glampinghub/internal/pricing"
	"github.com/GHtech935/glampinghub/internal/repository"
)

// Kind classifies a failed booking operation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindRetryable  Kind = "retryable"
	KindInternal   Kind = "internal"
)

// Error is the only error type returned by Service. Message is safe to show
// to the caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// MySQL error numbers for a lock wait timeout and a detected deadlock. Both
// leave the transaction safe to retry from the start.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps any error produced under the service to an *Error.
func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	var te *model.TransitionError
	if errors.As(err, &te) {
		return &Error{Kind: KindConflict, Message: te.Error(), Err: err}
	}
	switch {
	case errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrUnitNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrParamNotFound),
		errors.Is(err, repository.ErrZoneNotFound),
		errors.Is(err, repository.ErrVoucherNotFound):
		return &Error{Kind: KindNotFound, Message: rootMessage(err), Err: err}
	case errors.Is(err, repository.ErrForbidden):
		return &Error{Kind: KindForbidden, Message: "booking belongs to a zone you cannot manage", Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: "booking changed concurrently", Err: err}
	case errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, pricing.ErrInvalidVoucherRequest):
		return &Error{Kind: KindValidation, Message: rootMessage(err), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindRetryable, Message: "operation timed out, retry the request", Err: err}
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == mysqlLockWaitTimeout || me.Number == mysqlDeadlock) {
		return &Error{Kind: KindRetryable, Message: "booking is busy, retry the request", Err: err}
	}
	log.Printf("booking: internal error: %v", err)
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// rootMessage returns the text of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
