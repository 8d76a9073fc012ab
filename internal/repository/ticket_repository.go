package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventx-ticketing/internal/model"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ticketColumns = `id, ticket_number, event_id, user_id, seat_number, price, status,
	booked_at, used_at, used_by, cancelled_at, refunded_at, updated_at`

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.EventID,
		&ticket.UserID,
		&ticket.SeatNumber,
		&ticket.Price,
		&ticket.Status,
		&ticket.BookedAt,
		&ticket.UsedAt,
		&ticket.UsedBy,
		&ticket.CancelledAt,
		&ticket.RefundedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *model.Ticket) error {
	query := `
		INSERT INTO tickets (id, ticket_number, event_id, user_id, seat_number, price, status, booked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID, ticket.TicketNumber, ticket.EventID, ticket.UserID, ticket.SeatNumber,
		ticket.Price, ticket.Status, ticket.BookedAt, ticket.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, heldSeatConstraint) {
			return apperrors.ErrSeatTaken
		}
		if isUniqueViolation(err, ticketNumberConstraint) {
			return apperrors.ErrTicketNumberTaken
		}
		return storageErr("create ticket", err)
	}
	return nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, storageErr("find ticket", err)
	}
	return ticket, nil
}

func (r *TicketRepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY booked_at DESC`
	return r.list(ctx, query, userID)
}

func (r *TicketRepositoryImpl) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 ORDER BY booked_at DESC`
	return r.list(ctx, query, eventID)
}

func (r *TicketRepositoryImpl) list(ctx context.Context, query string, arg interface{}) ([]*model.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, storageErr("list tickets", err)
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, storageErr("scan ticket", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list tickets", err)
	}
	return tickets, nil
}

func (r *TicketRepositoryImpl) SeatHeld(ctx context.Context, eventID uuid.UUID, seatNumber string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM tickets
			WHERE event_id = $1 AND seat_number = $2 AND status IN ('active', 'used')
		)`
	var held bool
	if err := r.pool.QueryRow(ctx, query, eventID, seatNumber).Scan(&held); err != nil {
		return false, storageErr("check seat", err)
	}
	return held, nil
}

func (r *TicketRepositoryImpl) HeldSeats(ctx context.Context, eventID uuid.UUID) ([]string, error) {
	query := `
		SELECT seat_number FROM tickets
		WHERE event_id = $1 AND seat_number IS NOT NULL AND status IN ('active', 'used')
		ORDER BY seat_number`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, storageErr("list held seats", err)
	}
	seats, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storageErr("list held seats", err)
	}
	return seats, nil
}

func (r *TicketRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, p model.TransitionParams) (*model.Ticket, error) {
	if !p.From.CanTransitionTo(p.To) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidState, p.From, p.To)
	}

	// 以目前狀態作為條件 (compare-and-set)，並發請求只有一個會成功
	query := `
		UPDATE tickets
		SET status       = $3,
		    used_at      = CASE WHEN $3 = 'used' THEN $4 ELSE used_at END,
		    used_by      = CASE WHEN $3 = 'used' THEN $5 ELSE used_by END,
		    cancelled_at = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END,
		    refunded_at  = CASE WHEN $3 = 'refunded' THEN $4 ELSE refunded_at END,
		    updated_at   = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + ticketColumns

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id, p.From, string(p.To), p.At, p.By))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storageErr("transition ticket", err)
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, p.From)
}

func (r *TicketRepositoryImpl) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*model.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storageErr("begin cancel", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE tickets
		SET status = 'cancelled', cancelled_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'active'
		RETURNING ` + ticketColumns

	ticket, err := scanTicket(tx.QueryRow(ctx, query, id, at))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, storageErr("cancel ticket", err)
		}
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: ticket is no longer %s", apperrors.ErrInvalidState, model.TicketStatusActive)
	}

	// 與票券狀態同一交易釋放名額
	tag, err := tx.Exec(ctx, `
		UPDATE events
		SET booked_seats = GREATEST(booked_seats - 1, 0), updated_at = $2
		WHERE id = $1`, ticket.EventID, at)
	if err != nil {
		return nil, storageErr("release seat", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.ErrEventNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr("commit cancel", err)
	}
	return ticket, nil
}
