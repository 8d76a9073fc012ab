package model

import "time"

type TicketEventType string

const (
	TicketEventBooked    TicketEventType = "ticket.booked"
	TicketEventCancelled TicketEventType = "ticket.cancelled"
	TicketEventUsed      TicketEventType = "ticket.used"
	TicketEventRefunded  TicketEventType = "ticket.refunded"
)

// TicketEvent 票券生命週期事件，交由通知服務處理 (QR、Email 等)
type TicketEvent struct {
	Type       TicketEventType `json:"type"`
	Ticket     Ticket          `json:"ticket"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewTicketEvent(typ TicketEventType, ticket *Ticket, at time.Time) *TicketEvent {
	return &TicketEvent{Type: typ, Ticket: *ticket, OccurredAt: at}
}
