package model

import (
	"fmt"
	"math/rand/v2"
	"time"

	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
)

// TicketStatus 票券狀態類型
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusRefunded  TicketStatus = "refunded"
)

// refunded is only reachable through cancelled.
var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusActive:    {TicketStatusUsed, TicketStatusCancelled},
	TicketStatusUsed:      {},
	TicketStatusCancelled: {TicketStatusRefunded},
	TicketStatusRefunded:  {},
}

// IsValid 驗證狀態是否有效
func (s TicketStatus) IsValid() bool {
	_, ok := ticketTransitions[s]
	return ok
}

// CanTransitionTo 檢查是否可以轉換到目標狀態
func (s TicketStatus) CanTransitionTo(target TicketStatus) bool {
	for _, status := range ticketTransitions[s] {
		if status == target {
			return true
		}
	}
	return false
}

// TransitionTo is the total transition function of the ticket lifecycle.
func (s TicketStatus) TransitionTo(target TicketStatus) (TicketStatus, error) {
	if !s.CanTransitionTo(target) {
		return s, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidState, s, target)
	}
	return target, nil
}

// IsTerminal 終態不可再轉換
func (s TicketStatus) IsTerminal() bool {
	return len(ticketTransitions[s]) == 0
}

type Ticket struct {
	ID           uuid.UUID    `json:"id"`
	TicketNumber string       `json:"ticket_number"`
	EventID      uuid.UUID    `json:"event_id"`
	UserID       uuid.UUID    `json:"user_id"`
	SeatNumber   *string      `json:"seat_number,omitempty"`
	Price        float64      `json:"price"`
	Status       TicketStatus `json:"status"`
	BookedAt     time.Time    `json:"booked_at"`
	UsedAt       *time.Time   `json:"used_at,omitempty"`
	UsedBy       *uuid.UUID   `json:"used_by,omitempty"`
	CancelledAt  *time.Time   `json:"cancelled_at,omitempty"`
	RefundedAt   *time.Time   `json:"refunded_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewTicket 建立新的有效票券，價格取自活動當下的價格
func NewTicket(event *Event, userID uuid.UUID, seatNumber *string, now time.Time) *Ticket {
	return &Ticket{
		ID:           uuid.New(),
		TicketNumber: NewTicketNumber(now),
		EventID:      event.ID,
		UserID:       userID,
		SeatNumber:   seatNumber,
		Price:        event.Price,
		Status:       TicketStatusActive,
		BookedAt:     now,
		UpdatedAt:    now,
	}
}

// NewTicketNumber formats EVT-YYYYMMDD-NNNNN.
func NewTicketNumber(now time.Time) string {
	return fmt.Sprintf("EVT-%s-%05d", now.UTC().Format("20060102"), 10000+rand.IntN(90000))
}

func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusActive
}

func (t *Ticket) Seat() string {
	if t.SeatNumber == nil {
		return ""
	}
	return *t.SeatNumber
}

// TransitionParams carries the stamps written together with a status change.
type TransitionParams struct {
	From TicketStatus
	To   TicketStatus
	At   time.Time
	By   *uuid.UUID
}

// ValidationReceipt is what the entry gate displays after a successful scan.
type ValidationReceipt struct {
	TicketID     uuid.UUID `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	SeatNumber   *string   `json:"seat_number,omitempty"`
	HolderID     uuid.UUID `json:"holder_id"`
	EventID      uuid.UUID `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	Venue        string    `json:"venue"`
	StartsAt     time.Time `json:"starts_at"`
	UsedAt       time.Time `json:"used_at"`
}

// BookRequest 訂票請求
type BookRequest struct {
	EventID    uuid.UUID `json:"event_id" binding:"required"`
	SeatNumber *string   `json:"seat_number"`
}
