package repository

import (
	"errors"
	"fmt"

	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	heldSeatConstraint     = "uq_tickets_held_seat"
	ticketNumberConstraint = "uq_tickets_ticket_number"
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// storageErr wraps a driver failure, tagging timeouts and lost connections as transient.
func storageErr(op string, err error) error {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, apperrors.Unavailable(err))
}
