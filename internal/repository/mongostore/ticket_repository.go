package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TicketRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	events *mongo.Collection
}

func NewTicketRepository(db *mongo.Database) repository.TicketRepository {
	return &TicketRepository{
		client: db.Client(),
		coll:   db.Collection(ticketsCollection),
		events: db.Collection(eventsCollection),
	}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	if _, err := r.coll.InsertOne(ctx, toTicketDoc(ticket)); err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), heldSeatIndex) {
			return apperrors.ErrSeatTaken
		}
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), ticketNumberIndex) {
			return apperrors.ErrTicketNumberTaken
		}
		return storageErr("create ticket", err)
	}
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	var doc ticketDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, storageErr("find ticket", err)
	}
	return doc.toModel()
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error) {
	return r.find(ctx, bson.M{"user_id": userID.String()})
}

func (r *TicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	return r.find(ctx, bson.M{"event_id": eventID.String()})
}

func (r *TicketRepository) find(ctx context.Context, filter bson.M) ([]*model.Ticket, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "booked_at", Value: -1}}))
	if err != nil {
		return nil, storageErr("list tickets", err)
	}
	var docs []ticketDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list tickets", err)
	}

	tickets := make([]*model.Ticket, 0, len(docs))
	for _, doc := range docs {
		t, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (r *TicketRepository) SeatHeld(ctx context.Context, eventID uuid.UUID, seatNumber string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx,
		bson.M{"event_id": eventID.String(), "seat_number": seatNumber, "seat_held": true},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, storageErr("check seat", err)
	}
	return n > 0, nil
}

func (r *TicketRepository) HeldSeats(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"event_id": eventID.String(), "seat_held": true, "seat_number": bson.M{"$exists": true}},
		options.Find().SetProjection(bson.M{"seat_number": 1}).SetSort(bson.D{{Key: "seat_number", Value: 1}}),
	)
	if err != nil {
		return nil, storageErr("list held seats", err)
	}
	var docs []struct {
		SeatNumber string `bson:"seat_number"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list held seats", err)
	}

	seats := make([]string, 0, len(docs))
	for _, d := range docs {
		seats = append(seats, d.SeatNumber)
	}
	return seats, nil
}

func (r *TicketRepository) Transition(ctx context.Context, id uuid.UUID, p model.TransitionParams) (*model.Ticket, error) {
	if _, err := p.From.TransitionTo(p.To); err != nil {
		return nil, err
	}

	set := bson.M{
		"status":     string(p.To),
		"seat_held":  holdsSeat(p.To),
		"updated_at": p.At,
	}
	switch p.To {
	case model.TicketStatusUsed:
		set["used_at"] = p.At
		if p.By != nil {
			set["used_by"] = p.By.String()
		}
	case model.TicketStatusCancelled:
		set["cancelled_at"] = p.At
	case model.TicketStatusRefunded:
		set["refunded_at"] = p.At
	}

	var doc ticketDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": string(p.From)},
		bson.M{"$set": set},
		afterUpdate,
	).Decode(&doc)
	if err == nil {
		return doc.toModel()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storageErr("transition ticket", err)
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, p.From)
}

// Cancel runs the ticket update and the seat release in one multi-document
// transaction, which needs a replica set or sharded cluster.
func (r *TicketRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*model.Ticket, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, storageErr("start session", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var doc ticketDoc
		err := r.coll.FindOneAndUpdate(sc,
			bson.M{"_id": id.String(), "status": string(model.TicketStatusActive)},
			bson.M{"$set": bson.M{
				"status":       string(model.TicketStatusCancelled),
				"seat_held":    false,
				"cancelled_at": at,
				"updated_at":   at,
			}},
			afterUpdate,
		).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			if _, err := r.FindByID(sc, id); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, model.TicketStatusActive)
		}
		if err != nil {
			return nil, storageErr("cancel ticket", err)
		}

		res, err := r.events.UpdateOne(sc,
			bson.M{"_id": doc.EventID},
			bson.A{bson.M{"$set": bson.M{
				"booked_seats": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$booked_seats", 1}}}},
				"updated_at":   at,
			}}},
		)
		if err != nil {
			return nil, storageErr("release seat", err)
		}
		if res.MatchedCount == 0 {
			return nil, apperrors.ErrEventNotFound
		}
		return doc.toModel()
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.Ticket), nil
}
