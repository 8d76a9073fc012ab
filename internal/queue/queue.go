package queue

import (
	"context"

	"eventx-ticketing/internal/model"
)

type Delivery struct {
	Event *model.TicketEvent
	Ack   func()
	Nack  func(requeue bool)
}

// TicketEventQueue 票券事件隊列，booking 發布、worker 訂閱
type TicketEventQueue interface {
	Publish(ctx context.Context, event *model.TicketEvent) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

type MemoryQueue struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.TicketEvent
}

func NewMemoryQueue(bufferSize int) *MemoryQueue {
	return &MemoryQueue{
		ch: make(chan *model.TicketEvent, bufferSize),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, event *model.TicketEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Subscribe(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-q.ch:
				d := Delivery{
					Event: event,
					Ack:   func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						select {
						case q.ch <- event:
						default:
							// buffer full, drop
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
