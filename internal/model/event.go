package model

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus 活動狀態類型
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusActive    EventStatus = "active"
	EventStatusClosed    EventStatus = "closed"
	EventStatusCancelled EventStatus = "cancelled"
)

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusDraft:     {EventStatusUpcoming, EventStatusCancelled},
	EventStatusUpcoming:  {EventStatusActive, EventStatusCancelled},
	EventStatusActive:    {EventStatusClosed, EventStatusCancelled},
	EventStatusClosed:    {EventStatusCancelled},
	EventStatusCancelled: {},
}

func (s EventStatus) IsValid() bool {
	_, ok := eventTransitions[s]
	return ok
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	for _, status := range eventTransitions[s] {
		if status == target {
			return true
		}
	}
	return false
}

// IsBookable reports whether tickets may be sold while the event is in this status.
func (s EventStatus) IsBookable() bool {
	return s == EventStatusUpcoming || s == EventStatusActive
}

type Event struct {
	ID          uuid.UUID    `json:"id"`
	OrganizerID uuid.UUID    `json:"organizer_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Venue       string       `json:"venue"`
	Location    string       `json:"location"`
	StartsAt    time.Time    `json:"starts_at"`
	Price       float64      `json:"price"`
	Capacity    int          `json:"capacity"`
	BookedSeats int          `json:"booked_seats"`
	Status      EventStatus  `json:"status"`
	SeatingPlan *SeatingPlan `json:"seating_plan,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsSoldOut 檢查活動是否售罄
func (e *Event) IsSoldOut() bool {
	return e.BookedSeats >= e.Capacity
}

func (e *Event) AvailableSeats() int {
	if e.BookedSeats >= e.Capacity {
		return 0
	}
	return e.Capacity - e.BookedSeats
}

// HasAssignedSeating reports whether bookings must name a seat from the plan.
func (e *Event) HasAssignedSeating() bool {
	return e.SeatingPlan != nil && e.SeatingPlan.SeatCount() > 0
}

type SeatingPlan struct {
	Sections []SeatSection `json:"sections"`
}

type SeatSection struct {
	Name string    `json:"name"`
	Rows []SeatRow `json:"rows"`
}

type SeatRow struct {
	Name  string   `json:"name"`
	Seats []string `json:"seats"`
}

func (p *SeatingPlan) SeatCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, section := range p.Sections {
		for _, row := range section.Rows {
			n += len(row.Seats)
		}
	}
	return n
}

func (p *SeatingPlan) HasSeat(seatNumber string) bool {
	if p == nil {
		return false
	}
	for _, section := range p.Sections {
		for _, row := range section.Rows {
			for _, seat := range row.Seats {
				if seat == seatNumber {
					return true
				}
			}
		}
	}
	return false
}

// SeatNumbers returns every seat in plan order; duplicates are reported by Validate.
func (p *SeatingPlan) SeatNumbers() []string {
	if p == nil {
		return nil
	}
	seats := make([]string, 0, p.SeatCount())
	for _, section := range p.Sections {
		for _, row := range section.Rows {
			seats = append(seats, row.Seats...)
		}
	}
	return seats
}

// Validate checks that seat numbers are non-empty and unique across the plan.
func (p *SeatingPlan) Validate() bool {
	seen := make(map[string]struct{}, p.SeatCount())
	for _, seat := range p.SeatNumbers() {
		if seat == "" {
			return false
		}
		if _, dup := seen[seat]; dup {
			return false
		}
		seen[seat] = struct{}{}
	}
	return true
}

type UpdateEventParams struct {
	Title       *string
	Description *string
	Venue       *string
	Location    *string
	StartsAt    *time.Time
	Price       *float64
}

func (p UpdateEventParams) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Venue == nil &&
		p.Location == nil && p.StartsAt == nil && p.Price == nil
}

type EventFilter struct {
	Status      *EventStatus
	OrganizerID *uuid.UUID
	// HideDrafts leaves draft events out of the result.
	HideDrafts bool
	Page       int
	Limit      int
}

// Normalize clamps pagination to sane bounds.
func (f EventFilter) Normalize() EventFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return f
}

func (f EventFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// SeatMap lists a seating plan together with the seats held by active or used tickets.
type SeatMap struct {
	EventID     uuid.UUID    `json:"event_id"`
	SeatingPlan *SeatingPlan `json:"seating_plan,omitempty"`
	BookedSeats []string     `json:"booked_seats"`
	Capacity    int          `json:"capacity"`
	Available   int          `json:"available"`
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	Venue       string       `json:"venue" binding:"required"`
	Location    string       `json:"location"`
	StartsAt    time.Time    `json:"starts_at" binding:"required"`
	Price       float64      `json:"price" binding:"gte=0"`
	Capacity    int          `json:"capacity" binding:"gte=0"`
	SeatingPlan *SeatingPlan `json:"seating_plan"`
}

type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Venue       *string    `json:"venue"`
	Location    *string    `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	Price       *float64   `json:"price" binding:"omitempty,gte=0"`
}

func (r UpdateEventRequest) Params() UpdateEventParams {
	return UpdateEventParams{
		Title:       r.Title,
		Description: r.Description,
		Venue:       r.Venue,
		Location:    r.Location,
		StartsAt:    r.StartsAt,
		Price:       r.Price,
	}
}

type UpdateEventStatusRequest struct {
	Status EventStatus `json:"status" binding:"required"`
}

// ResizeEventRequest 容量設為 0 代表暫停售票
type ResizeEventRequest struct {
	Capacity *int `json:"capacity" binding:"required,gte=0"`
}
