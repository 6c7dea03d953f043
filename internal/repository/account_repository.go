package repository

import (
	"context"

	"github.com/tsegai/nexbank/internal/models"
)

type AccountRepository interface {
	GetByNumber(ctx context.Context, number string) (*models.Account, error)
	// GetByNumberForUser returns ErrAccountNotFound both when the account does
	// not exist and when it belongs to another user, so callers cannot probe
	// for account existence.
	GetByNumberForUser(ctx context.Context, number string, userID int64) (*models.Account, error)
}
