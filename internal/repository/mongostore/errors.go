package mongostore

import (
	"fmt"

	apperrors "eventx-ticketing/pkg/app_errors"

	"go.mongodb.org/mongo-driver/mongo"
)

func storageErr(op string, err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, apperrors.Unavailable(err))
}
