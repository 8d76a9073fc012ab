package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventx-ticketing/config"
	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/notifications"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketEvent() *model.TicketEvent {
	return &model.TicketEvent{
		Type: model.TicketEventBooked,
		Ticket: model.Ticket{
			ID:           uuid.New(),
			TicketNumber: "EVT-20260501-54321",
			EventID:      uuid.New(),
			UserID:       uuid.New(),
			Status:       model.TicketStatusActive,
		},
		OccurredAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		event := ticketEvent()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != "ticket-events" {
				return errors.New("wrong topic")
			}
			key, _ := msg.Key.Encode()
			if string(key) != event.Ticket.ID.String() {
				return errors.New("key must be the ticket id")
			}
			return nil
		})
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got model.TicketEvent
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got.Ticket.TicketNumber != event.Ticket.TicketNumber {
				return errors.New("payload mismatch")
			}
			return nil
		})

		p := notifications.NewKafkaPublisherWithProducer(producer, "ticket-events")
		require.NoError(t, p.Publish(context.Background(), event))
		require.NoError(t, p.Publish(context.Background(), event))
		require.NoError(t, p.Close())
	})

	t.Run("Failed - broker error", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		p := notifications.NewKafkaPublisherWithProducer(producer, "ticket-events")
		err := p.Publish(context.Background(), ticketEvent())

		assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
		require.NoError(t, p.Close())
	})
}

func TestNewSaramaConfig(t *testing.T) {
	sc := notifications.NewSaramaConfig(&config.KafkaConfig{ProducerRetryMax: 4})

	require.NoError(t, sc.Validate())
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, 4, sc.Producer.Retry.Max)
}

func TestLogPublisher(t *testing.T) {
	p := notifications.NewLogPublisher()
	assert.NoError(t, p.Publish(context.Background(), ticketEvent()))
	assert.NoError(t, p.Close())
}
