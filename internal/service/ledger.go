package service

import (
	"context"
	"fmt"

	"eventx-ticketing/internal/clock"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
)

// CapacityLedger changes an event's booked seat counter and knows nothing
// about tickets. Cancellation is the one exception: TicketRepository.Cancel
// releases the seat together with the ticket's status change.
type CapacityLedger struct {
	events repository.EventRepository
	clock  clock.Clock
}

func NewCapacityLedger(events repository.EventRepository, clk clock.Clock) *CapacityLedger {
	return &CapacityLedger{events: events, clock: clk}
}

// Reserve takes one seat, or fails with ErrEventNotBookable or ErrEventFull.
func (l *CapacityLedger) Reserve(ctx context.Context, eventID uuid.UUID) error {
	_, err := l.events.ReserveSeat(ctx, eventID, l.clock.Now())
	return err
}

// Release returns one seat. The counter never goes below zero.
func (l *CapacityLedger) Release(ctx context.Context, eventID uuid.UUID) error {
	_, err := l.events.ReleaseSeat(ctx, eventID, l.clock.Now())
	return err
}

func (l *CapacityLedger) Resize(ctx context.Context, eventID uuid.UUID, capacity int) error {
	// 0 暫停售票
	if capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", apperrors.ErrInvalidInput)
	}
	_, err := l.events.Resize(ctx, eventID, capacity, l.clock.Now())
	return err
}

type CapacitySnapshot struct {
	Capacity    int `json:"capacity"`
	BookedSeats int `json:"booked_seats"`
	Available   int `json:"available"`
}

func (l *CapacityLedger) Snapshot(ctx context.Context, eventID uuid.UUID) (CapacitySnapshot, error) {
	event, err := l.events.FindByID(ctx, eventID)
	if err != nil {
		return CapacitySnapshot{}, err
	}
	return CapacitySnapshot{
		Capacity:    event.Capacity,
		BookedSeats: event.BookedSeats,
		Available:   event.AvailableSeats(),
	}, nil
}
