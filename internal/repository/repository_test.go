package repository_test

import (
	"testing"

	"eventx-ticketing/internal/repository"
	"eventx-ticketing/internal/repository/repositorytest"
	"eventx-ticketing/internal/testutil"
)

func TestPostgresRepositories(t *testing.T) {
	pool := testutil.Postgres(t)

	repositorytest.Run(t, func(t *testing.T) (repository.EventRepository, repository.TicketRepository) {
		return repository.NewEventRepository(pool), repository.NewTicketRepository(pool)
	})
}
