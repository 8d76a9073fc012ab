package mongostore

import (
	"time"

	"eventx-ticketing/internal/model"

	"github.com/google/uuid"
)

type eventDoc struct {
	ID          string             `bson:"_id"`
	OrganizerID string             `bson:"organizer_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Venue       string             `bson:"venue"`
	Location    string             `bson:"location"`
	StartsAt    time.Time          `bson:"starts_at"`
	Price       float64            `bson:"price"`
	Capacity    int                `bson:"capacity"`
	BookedSeats int                `bson:"booked_seats"`
	Status      string             `bson:"status"`
	SeatingPlan *model.SeatingPlan `bson:"seating_plan,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toEventDoc(e *model.Event) eventDoc {
	return eventDoc{
		ID:          e.ID.String(),
		OrganizerID: e.OrganizerID.String(),
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		Price:       e.Price,
		Capacity:    e.Capacity,
		BookedSeats: e.BookedSeats,
		Status:      string(e.Status),
		SeatingPlan: e.SeatingPlan,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d eventDoc) toModel() (*model.Event, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	organizer, err := uuid.Parse(d.OrganizerID)
	if err != nil {
		return nil, err
	}
	return &model.Event{
		ID:          id,
		OrganizerID: organizer,
		Title:       d.Title,
		Description: d.Description,
		Venue:       d.Venue,
		Location:    d.Location,
		StartsAt:    d.StartsAt.UTC(),
		Price:       d.Price,
		Capacity:    d.Capacity,
		BookedSeats: d.BookedSeats,
		Status:      model.EventStatus(d.Status),
		SeatingPlan: d.SeatingPlan,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

// ticketDoc carries seat_held so a partial unique index can cover active and used tickets.
type ticketDoc struct {
	ID           string     `bson:"_id"`
	TicketNumber string     `bson:"ticket_number"`
	EventID      string     `bson:"event_id"`
	UserID       string     `bson:"user_id"`
	SeatNumber   *string    `bson:"seat_number,omitempty"`
	SeatHeld     bool       `bson:"seat_held"`
	Price        float64    `bson:"price"`
	Status       string     `bson:"status"`
	BookedAt     time.Time  `bson:"booked_at"`
	UsedAt       *time.Time `bson:"used_at,omitempty"`
	UsedBy       *string    `bson:"used_by,omitempty"`
	CancelledAt  *time.Time `bson:"cancelled_at,omitempty"`
	RefundedAt   *time.Time `bson:"refunded_at,omitempty"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func holdsSeat(status model.TicketStatus) bool {
	return status == model.TicketStatusActive || status == model.TicketStatusUsed
}

func toTicketDoc(t *model.Ticket) ticketDoc {
	doc := ticketDoc{
		ID:           t.ID.String(),
		TicketNumber: t.TicketNumber,
		EventID:      t.EventID.String(),
		UserID:       t.UserID.String(),
		SeatNumber:   t.SeatNumber,
		SeatHeld:     holdsSeat(t.Status),
		Price:        t.Price,
		Status:       string(t.Status),
		BookedAt:     t.BookedAt,
		UsedAt:       t.UsedAt,
		CancelledAt:  t.CancelledAt,
		RefundedAt:   t.RefundedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.UsedBy != nil {
		by := t.UsedBy.String()
		doc.UsedBy = &by
	}
	return doc
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (d ticketDoc) toModel() (*model.Ticket, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	eventID, err := uuid.Parse(d.EventID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}
	t := &model.Ticket{
		ID:           id,
		TicketNumber: d.TicketNumber,
		EventID:      eventID,
		UserID:       userID,
		SeatNumber:   d.SeatNumber,
		Price:        d.Price,
		Status:       model.TicketStatus(d.Status),
		BookedAt:     d.BookedAt.UTC(),
		UsedAt:       utcPtr(d.UsedAt),
		CancelledAt:  utcPtr(d.CancelledAt),
		RefundedAt:   utcPtr(d.RefundedAt),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.UsedBy != nil {
		by, err := uuid.Parse(*d.UsedBy)
		if err != nil {
			return nil, err
		}
		t.UsedBy = &by
	}
	return t, nil
}
