package apperrors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrTicketNotFound = errors.New("ticket not found")

	// capacity
	ErrEventFull      = errors.New("event is full")
	ErrBelowSoldCount = errors.New("capacity below sold count")

	// ticket and event state
	ErrInvalidState            = errors.New("invalid ticket state")
	ErrTicketAlreadyUsed       = errors.New("ticket already used")
	ErrTicketCancelled         = errors.New("ticket is cancelled")
	ErrEventNotBookable        = errors.New("event is not open for booking")
	ErrInvalidStatusTransition = errors.New("invalid event status transition")
	ErrEventHasActiveTickets   = errors.New("event has active tickets")

	ErrSeatTaken = errors.New("seat already booked")
	// 票號碰撞，重新產生票號即可
	ErrTicketNumberTaken = errors.New("ticket number already issued")

	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidSeat  = errors.New("seat does not exist in seating plan")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInternalServerError = errors.New("internal server error")
)

// Kind groups errors by how a caller is expected to react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindCapacity
	KindState
	KindConflict
	KindInvalid
	KindUnauthorized
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindState:
		return "state"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrStorageUnavailable, KindTransient},
	{ErrTicketNumberTaken, KindTransient},
	{ErrEventNotFound, KindNotFound},
	{ErrTicketNotFound, KindNotFound},
	{ErrEventFull, KindCapacity},
	{ErrBelowSoldCount, KindCapacity},
	{ErrInvalidState, KindState},
	{ErrTicketAlreadyUsed, KindState},
	{ErrTicketCancelled, KindState},
	{ErrEventNotBookable, KindState},
	{ErrInvalidStatusTransition, KindState},
	{ErrEventHasActiveTickets, KindState},
	{ErrSeatTaken, KindConflict},
	{ErrInvalidInput, KindInvalid},
	{ErrInvalidSeat, KindInvalid},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
}

// KindOf returns the category of err, KindUnknown for anything not raised by this module.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// IsRetryable reports whether the same request may be re-sent verbatim.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// Unavailable marks a storage failure as transient when it was caused by a
// timeout or a cancelled deadline. Other errors are returned unchanged.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
