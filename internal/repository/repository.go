package repository

import (
	"context"
	"time"

	"eventx-ticketing/internal/model"

	"github.com/google/uuid"
)

// EventRepository persists events. Every method that touches booked_seats or
// status is a single conditional write at the storage layer.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, params model.UpdateEventParams, at time.Time) (*model.Event, error)

	// UpdateStatus moves the event from -> to only if it is still in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.EventStatus, at time.Time) (*model.Event, error)
	// Delete removes the event only while no seat is booked.
	Delete(ctx context.Context, id uuid.UUID) error

	// ReserveSeat increments booked_seats iff the event is bookable and
	// booked_seats < capacity. It fails with ErrEventNotBookable or ErrEventFull.
	ReserveSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error)
	// ReleaseSeat decrements booked_seats, floored at zero.
	ReleaseSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error)
	// Resize sets capacity iff capacity >= booked_seats.
	Resize(ctx context.Context, id uuid.UUID, capacity int, at time.Time) (*model.Event, error)
}

// TicketRepository persists tickets. Seat uniqueness among seat-holding
// tickets is enforced by the store itself.
type TicketRepository interface {
	// Create fails with ErrSeatTaken or ErrTicketNumberTaken on a uniqueness conflict.
	Create(ctx context.Context, ticket *model.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error)

	// SeatHeld reports whether an active or used ticket occupies the seat.
	SeatHeld(ctx context.Context, eventID uuid.UUID, seatNumber string) (bool, error)
	HeldSeats(ctx context.Context, eventID uuid.UUID) ([]string, error)

	// Transition is a compare-and-set on status. It fails with ErrInvalidState
	// when the ticket is no longer in p.From.
	Transition(ctx context.Context, id uuid.UUID, p model.TransitionParams) (*model.Ticket, error)

	// Cancel moves an active ticket to cancelled and releases its seat on the
	// event in one atomic step. Either both happen or neither does.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*model.Ticket, error)
}
