package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventx-ticketing/internal/model"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, organizer_id, title, description, venue, location, starts_at, price,
	capacity, booked_seats, status, seating_plan, created_at, updated_at`

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&event.Venue,
		&event.Location,
		&event.StartsAt,
		&event.Price,
		&event.Capacity,
		&event.BookedSeats,
		&event.Status,
		&event.SeatingPlan,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) error {
	query := `
		INSERT INTO events (id, organizer_id, title, description, venue, location, starts_at, price,
			capacity, booked_seats, status, seating_plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID, event.OrganizerID, event.Title, event.Description, event.Venue, event.Location,
		event.StartsAt, event.Price, event.Capacity, event.BookedSeats, event.Status, event.SeatingPlan,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return apperrors.ErrInvalidInput
		}
		return storageErr("create event", err)
	}
	return nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, storageErr("find event", err)
	}
	return event, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	filter = filter.Normalize()

	conds := []string{}
	args := []interface{}{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.OrganizerID != nil {
		args = append(args, *filter.OrganizerID)
		conds = append(conds, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	if filter.HideDrafts {
		conds = append(conds, "status <> 'draft'")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset())

	query := fmt.Sprintf(`
		SELECT %s FROM events
		%s
		ORDER BY starts_at ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, eventColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, storageErr("scan event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list events", err)
	}
	return events, nil
}

func (r *EventRepositoryImpl) UpdateDetails(ctx context.Context, id uuid.UUID, params model.UpdateEventParams, at time.Time) (*model.Event, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Title != nil {
		add("title", *params.Title)
	}
	if params.Description != nil {
		add("description", *params.Description)
	}
	if params.Venue != nil {
		add("venue", *params.Venue)
	}
	if params.Location != nil {
		add("location", *params.Location)
	}
	if params.StartsAt != nil {
		add("starts_at", *params.StartsAt)
	}
	if params.Price != nil {
		add("price", *params.Price)
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}
	add("updated_at", at)
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), eventColumns)

	event, err := scanEvent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, storageErr("update event", err)
	}
	return event, nil
}

func (r *EventRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.EventStatus, at time.Time) (*model.Event, error) {
	query := `
		UPDATE events
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, from, to, at))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storageErr("update event status", err)
	}
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: status is no longer %s", apperrors.ErrInvalidStatusTransition, from)
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1 AND booked_seats = 0`, id)
	if err != nil {
		return storageErr("delete event", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := r.exists(ctx, id); err != nil {
		return err
	}
	return apperrors.ErrEventHasActiveTickets
}

func (r *EventRepositoryImpl) ReserveSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	// 狀態與容量在同一個 UPDATE 條件內檢查，避免與活動取消交錯
	query := `
		UPDATE events
		SET booked_seats = booked_seats + 1, updated_at = $2
		WHERE id = $1 AND status IN ('upcoming', 'active') AND booked_seats < capacity
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, at))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storageErr("reserve seat", err)
	}
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, reserveRejection(current)
}

// reserveRejection explains why a conditional reserve matched nothing.
func reserveRejection(e *model.Event) error {
	if !e.Status.IsBookable() {
		return fmt.Errorf("%w: event is %s", apperrors.ErrEventNotBookable, e.Status)
	}
	return apperrors.ErrEventFull
}

func (r *EventRepositoryImpl) ReleaseSeat(ctx context.Context, id uuid.UUID, at time.Time) (*model.Event, error) {
	query := `
		UPDATE events
		SET booked_seats = GREATEST(booked_seats - 1, 0), updated_at = $2
		WHERE id = $1
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, storageErr("release seat", err)
	}
	return event, nil
}

func (r *EventRepositoryImpl) Resize(ctx context.Context, id uuid.UUID, capacity int, at time.Time) (*model.Event, error) {
	query := `
		UPDATE events
		SET capacity = $2, updated_at = $3
		WHERE id = $1 AND booked_seats <= $2
		RETURNING ` + eventColumns

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id, capacity, at))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storageErr("resize event", err)
	}
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperrors.ErrBelowSoldCount
}

// exists disambiguates a conditional write that matched no row.
func (r *EventRepositoryImpl) exists(ctx context.Context, id uuid.UUID) error {
	var found bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return storageErr("check event", err)
	}
	if !found {
		return apperrors.ErrEventNotFound
	}
	return nil
}
