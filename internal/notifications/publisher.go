// Package notifications hands ticket lifecycle events to the downstream
// notification service (e-mail, QR delivery).
package notifications

import (
	"context"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/pkg/logger"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, event *model.TicketEvent) error
	Close() error
}

// LogPublisher writes events to the log; used when Kafka is disabled.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.WithComponent("notifications")}
}

func (p *LogPublisher) Publish(_ context.Context, event *model.TicketEvent) error {
	p.log.Info("ticket event",
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.Ticket.ID.String()),
		zap.String("ticket_number", event.Ticket.TicketNumber),
		zap.String("event_id", event.Ticket.EventID.String()),
		zap.String("user_id", event.Ticket.UserID.String()),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
