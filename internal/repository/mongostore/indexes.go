package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	eventsCollection  = "events"
	ticketsCollection = "tickets"

	heldSeatIndex     = "uq_tickets_held_seat"
	ticketNumberIndex = "uq_tickets_ticket_number"
)

// EnsureIndexes creates the indexes the repositories rely on for correctness,
// most importantly the seat uniqueness index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "organizer_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}

	_, err = db.Collection(ticketsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "seat_number", Value: 1}},
			Options: options.Index().
				SetName(heldSeatIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "seat_held", Value: true},
					{Key: "seat_number", Value: bson.D{{Key: "$exists", Value: true}}},
				}),
		},
		{
			Keys:    bson.D{{Key: "ticket_number", Value: 1}},
			Options: options.Index().SetName(ticketNumberIndex).SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "booked_at", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create ticket indexes: %w", err)
	}
	return nil
}
