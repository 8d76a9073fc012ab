package worker

import (
	"context"
	"fmt"

	"eventx-ticketing/internal/notifications"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/pkg/logger"

	"go.uber.org/zap"
)

// TicketEventWorker 把隊列中的票券事件轉交給通知服務
type TicketEventWorker struct {
	queue     queue.TicketEventQueue
	publisher notifications.Publisher
	log       *zap.Logger
}

func NewTicketEventWorker(q queue.TicketEventQueue, publisher notifications.Publisher) *TicketEventWorker {
	return &TicketEventWorker{
		queue:     q,
		publisher: publisher,
		log:       logger.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled and the subscription drains.
func (w *TicketEventWorker) Run(ctx context.Context) error {
	deliveries, err := w.queue.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe ticket events: %w", err)
	}

	for d := range deliveries {
		if err := w.publisher.Publish(ctx, d.Event); err != nil {
			// 通知服務暫時不可用，留給隊列重試
			w.log.Warn("publish ticket event failed, will retry",
				zap.String("type", string(d.Event.Type)),
				zap.String("ticket_id", d.Event.Ticket.ID.String()),
				zap.Error(err),
			)
			d.Nack(true)
			continue
		}
		d.Ack()
	}
	return nil
}
