// Package mongostore stores events and tickets in MongoDB. Capacity changes use a
// single FindOneAndUpdate whose filter carries the guard, so the check and
// the write cannot interleave with another booking.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository struct {
	coll    *mongo.Collection
	tickets *mongo.Collection
}

func NewEventRepository(db *mongo.Database) repository.EventRepository {
	return &EventRepository{
		coll:    db.Collection(eventsCollection),
		tickets: db.Collection(ticketsCollection),
	}
}

var afterUpdate = options.FindOneAndUpdate().SetReturnDocument(options.After)

var bookableStatuses = bson.A{string(model.EventStatusUpcoming), string(model.EventStatusActive)}

func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	if _, err := r.coll.InsertOne(ctx, toEventDoc(event)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: duplicate event id", apperrors.ErrInvalidInput)
		}
		return storageErr("create event", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var doc eventDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, storageErr("find event", err)
	}
	return doc.toModel()
}

func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	filter = filter.Normalize()

	query := bson.M{}
	switch {
	case filter.Status != nil && filter.HideDrafts && *filter.Status == model.EventStatusDraft:
		return []*model.Event{}, nil
	case filter.Status != nil:
		query["status"] = string(*filter.Status)
	case filter.HideDrafts:
		query["status"] = bson.M{"$ne": string(model.EventStatusDraft)}
	}
	if filter.OrganizerID != nil {
		query["organizer_id"] = filter.OrganizerID.String()
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	var docs []eventDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list events", err)
	}

	events := make([]*model.Event, 0, len(docs))
	for _, doc := range docs {
		e, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *EventRepository) UpdateDetails(ctx context.Context, id uuid.UUID, params model.UpdateEventParams, at time.Time) (*model.Event, error) {
	if params.IsEmpty() {
		return nil, apperrors.ErrInvalidInput
	}
	set := bson.M{"updated_at": at}
	if params.Title != nil {
		set["title"] = *params.Title
	}
	if params.Description != nil {
		set["description"] = *params.Description
	}
	if params.Venue != nil {
		set["venue"] = *params.Venue
	}
	if params.Location != nil {
		set["location"] = *params.Location
	}
	if params.StartsAt != nil {
		set["starts_at"] = *params.StartsAt
	}
	if params.Price != nil {
		set["price"] = *params.Price
	}

	event, err := r.findAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrEventNotFound
	}
	return event, err
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.EventStatus, at time.Time) (*model.Event, error) {
	event, err := r.findAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": at}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := r.exists(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: status is no longer %s", apperrors.ErrInvalidStatusTransition, from)
	}
	return event, err
}

func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "booked_seats": 0})
	if err != nil {
		return storageErr("delete event", err)
	}
	if res.DeletedCount == 0 {
		if err := r.exists(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrEventHasActiveTickets
	}
	if _, err := r.tickets.DeleteMany(ctx, bson.M{"event_id": id.String()}); err != nil {
		return storageErr("delete event tickets", err)
	}
	return nil
}

func (r *EventRepository) ReserveSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	event, err := r.findAndUpdate(ctx,
		bson.M{
			"_id":    id.String(),
			"status": bson.M{"$in": bookableStatuses},
			"$expr":  bson.M{"$lt": bson.A{"$booked_seats", "$capacity"}},
		},
		bson.M{
			"$inc": bson.M{"booked_seats": 1},
			"$set": bson.M{"updated_at": at},
		},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.IsBookable() {
			return nil, fmt.Errorf("%w: event is %s", apperrors.ErrEventNotBookable, current.Status)
		}
		return nil, apperrors.ErrEventFull
	}
	return event, err
}

func (r *EventRepository) ReleaseSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	event, err := r.findAndUpdate(ctx,
		bson.M{"_id": id.String(), "booked_seats": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"booked_seats": -1},
			"$set": bson.M{"updated_at": at},
		},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// already at zero
		return r.FindByID(ctx, id)
	}
	return event, err
}

func (r *EventRepository) Resize(ctx context.Context, id uuid.UUID, capacity int, at time.Time) (*model.Event, error) {
	event, err := r.findAndUpdate(ctx,
		bson.M{"_id": id.String(), "booked_seats": bson.M{"$lte": capacity}},
		bson.M{"$set": bson.M{"capacity": capacity, "updated_at": at}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if err := r.exists(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrBelowSoldCount
	}
	return event, err
}

// findAndUpdate returns mongo.ErrNoDocuments unwrapped so callers can disambiguate.
func (r *EventRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*model.Event, error) {
	var doc eventDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update, afterUpdate).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, storageErr("update event", err)
	}
	return doc.toModel()
}

func (r *EventRepository) exists(ctx context.Context, id uuid.UUID) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id.String()}, options.Count().SetLimit(1))
	if err != nil {
		return storageErr("check event", err)
	}
	if n == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}
