// Package memory is an in-process store used by STORE_DRIVER=memory and by
// service tests. One mutex guards both collections so every conditional
// write is atomic in the same way the database ones are.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
)

type seatKey struct {
	eventID uuid.UUID
	seat    string
}

type Store struct {
	mu      sync.Mutex
	events  map[uuid.UUID]*model.Event
	tickets map[uuid.UUID]*model.Ticket
	seats   map[seatKey]uuid.UUID
	numbers map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		events:  make(map[uuid.UUID]*model.Event),
		tickets: make(map[uuid.UUID]*model.Ticket),
		seats:   make(map[seatKey]uuid.UUID),
		numbers: make(map[string]uuid.UUID),
	}
}

func (s *Store) Events() *EventRepository {
	return &EventRepository{s: s}
}

func (s *Store) Tickets() *TicketRepository {
	return &TicketRepository{s: s}
}

var (
	_ repository.EventRepository  = (*EventRepository)(nil)
	_ repository.TicketRepository = (*TicketRepository)(nil)
)

type EventRepository struct {
	s *Store
}

func copyEvent(e *model.Event) *model.Event {
	c := *e
	return &c
}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[event.ID]; ok {
		return fmt.Errorf("%w: duplicate event id", apperrors.ErrInvalidInput)
	}
	r.s.events[event.ID] = copyEvent(event)
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	return copyEvent(e), nil
}

func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	filter = filter.Normalize()

	r.s.mu.Lock()
	matched := make([]*model.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		if filter.OrganizerID != nil && e.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.HideDrafts && e.Status == model.EventStatusDraft {
			continue
		}
		matched = append(matched, copyEvent(e))
	}
	r.s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartsAt.Equal(matched[j].StartsAt) {
			return matched[i].StartsAt.Before(matched[j].StartsAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	start := filter.Offset()
	if start >= len(matched) {
		return []*model.Event{}, nil
	}
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], nil
}

func (r *EventRepository) UpdateDetails(ctx context.Context, id uuid.UUID, params model.UpdateEventParams, at time.Time) (*model.Event, error) {
	if params.IsEmpty() {
		return nil, apperrors.ErrInvalidInput
	}
	return r.mutate(ctx, id, func(e *model.Event) error {
		if params.Title != nil {
			e.Title = *params.Title
		}
		if params.Description != nil {
			e.Description = *params.Description
		}
		if params.Venue != nil {
			e.Venue = *params.Venue
		}
		if params.Location != nil {
			e.Location = *params.Location
		}
		if params.StartsAt != nil {
			e.StartsAt = *params.StartsAt
		}
		if params.Price != nil {
			e.Price = *params.Price
		}
		e.UpdatedAt = at
		return nil
	})
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.EventStatus, at time.Time) (*model.Event, error) {
	return r.mutate(ctx, id, func(e *model.Event) error {
		if e.Status != from {
			return fmt.Errorf("%w: status is no longer %s", apperrors.ErrInvalidStatusTransition, from)
		}
		e.Status = to
		e.UpdatedAt = at
		return nil
	})
}

func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if e.BookedSeats > 0 {
		return apperrors.ErrEventHasActiveTickets
	}
	delete(r.s.events, id)
	for tid, t := range r.s.tickets {
		if t.EventID == id {
			delete(r.s.tickets, tid)
			delete(r.s.numbers, t.TicketNumber)
		}
	}
	return nil
}

func (r *EventRepository) ReserveSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	return r.mutate(ctx, id, func(e *model.Event) error {
		if !e.Status.IsBookable() {
			return fmt.Errorf("%w: event is %s", apperrors.ErrEventNotBookable, e.Status)
		}
		if e.BookedSeats >= e.Capacity {
			return apperrors.ErrEventFull
		}
		e.BookedSeats++
		e.UpdatedAt = at
		return nil
	})
}

func (r *EventRepository) ReleaseSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	return r.mutate(ctx, id, func(e *model.Event) error {
		if e.BookedSeats > 0 {
			e.BookedSeats--
		}
		e.UpdatedAt = at
		return nil
	})
}

func (r *EventRepository) Resize(ctx context.Context, id uuid.UUID, capacity int, at time.Time) (*model.Event, error) {
	return r.mutate(ctx, id, func(e *model.Event) error {
		if capacity < e.BookedSeats {
			return apperrors.ErrBelowSoldCount
		}
		e.Capacity = capacity
		e.UpdatedAt = at
		return nil
	})
}

func (r *EventRepository) mutate(ctx context.Context, id uuid.UUID, fn func(e *model.Event) error) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	next := copyEvent(e)
	if err := fn(next); err != nil {
		return nil, err
	}
	r.s.events[id] = next
	return copyEvent(next), nil
}

type TicketRepository struct {
	s *Store
}

func copyTicket(t *model.Ticket) *model.Ticket {
	c := *t
	return &c
}

func holdsSeat(status model.TicketStatus) bool {
	return status == model.TicketStatusActive || status == model.TicketStatusUsed
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[ticket.ID]; ok {
		return fmt.Errorf("%w: duplicate ticket id", apperrors.ErrInvalidInput)
	}
	var key *seatKey
	if ticket.SeatNumber != nil && holdsSeat(ticket.Status) {
		key = &seatKey{ticket.EventID, *ticket.SeatNumber}
		if _, taken := r.s.seats[*key]; taken {
			return apperrors.ErrSeatTaken
		}
	}
	if _, taken := r.s.numbers[ticket.TicketNumber]; taken {
		return apperrors.ErrTicketNumberTaken
	}

	if key != nil {
		r.s.seats[*key] = ticket.ID
	}
	r.s.numbers[ticket.TicketNumber] = ticket.ID
	r.s.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return copyTicket(t), nil
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error) {
	return r.filter(ctx, func(t *model.Ticket) bool { return t.UserID == userID })
}

func (r *TicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	return r.filter(ctx, func(t *model.Ticket) bool { return t.EventID == eventID })
}

func (r *TicketRepository) filter(ctx context.Context, keep func(t *model.Ticket) bool) ([]*model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	out := make([]*model.Ticket, 0)
	for _, t := range r.s.tickets {
		if keep(t) {
			out = append(out, copyTicket(t))
		}
	}
	r.s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, nil
}

func (r *TicketRepository) SeatHeld(ctx context.Context, eventID uuid.UUID, seatNumber string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, held := r.s.seats[seatKey{eventID, seatNumber}]
	return held, nil
}

func (r *TicketRepository) HeldSeats(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	seats := make([]string, 0)
	for key := range r.s.seats {
		if key.eventID == eventID {
			seats = append(seats, key.seat)
		}
	}
	r.s.mu.Unlock()

	sort.Strings(seats)
	return seats, nil
}

func (r *TicketRepository) Transition(ctx context.Context, id uuid.UUID, p model.TransitionParams) (*model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	if _, err := p.From.TransitionTo(p.To); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	if t.Status != p.From {
		return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, p.From)
	}

	next := copyTicket(t)
	next.Status = p.To
	next.UpdatedAt = p.At
	at := p.At
	switch p.To {
	case model.TicketStatusUsed:
		next.UsedAt = &at
		next.UsedBy = p.By
	case model.TicketStatusCancelled:
		next.CancelledAt = &at
	case model.TicketStatusRefunded:
		next.RefundedAt = &at
	}

	if next.SeatNumber != nil && holdsSeat(t.Status) && !holdsSeat(next.Status) {
		delete(r.s.seats, seatKey{t.EventID, *t.SeatNumber})
	}
	r.s.tickets[id] = next
	return copyTicket(next), nil
}

func (r *TicketRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unavailable(err)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	if t.Status != model.TicketStatusActive {
		return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, model.TicketStatusActive)
	}
	// both records are checked before either is written
	e, ok := r.s.events[t.EventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}

	event := copyEvent(e)
	if event.BookedSeats > 0 {
		event.BookedSeats--
	}
	event.UpdatedAt = at

	next := copyTicket(t)
	next.Status = model.TicketStatusCancelled
	next.CancelledAt = &at
	next.UpdatedAt = at

	if next.SeatNumber != nil {
		delete(r.s.seats, seatKey{t.EventID, *t.SeatNumber})
	}
	r.s.events[event.ID] = event
	r.s.tickets[id] = next
	return copyTicket(next), nil
}
