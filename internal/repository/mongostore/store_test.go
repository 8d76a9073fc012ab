package mongostore_test

import (
	"context"
	"testing"

	"eventx-ticketing/internal/repository"
	"eventx-ticketing/internal/repository/mongostore"
	"eventx-ticketing/internal/repository/repositorytest"
	"eventx-ticketing/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoRepositories(t *testing.T) {
	db := testutil.Mongo(t)
	require.NoError(t, mongostore.EnsureIndexes(context.Background(), db))

	var opts []repositorytest.Option
	if !supportsTransactions(t, db) {
		opts = append(opts, repositorytest.WithoutTransactions())
	}
	repositorytest.Run(t, func(t *testing.T) (repository.EventRepository, repository.TicketRepository) {
		return mongostore.NewEventRepository(db), mongostore.NewTicketRepository(db)
	}, opts...)
}

// supportsTransactions reports whether the server is a replica set member or mongos.
func supportsTransactions(t *testing.T, db *mongo.Database) bool {
	t.Helper()
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := db.Client().Database("admin").RunCommand(context.Background(), bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	require.NoError(t, err)
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}
