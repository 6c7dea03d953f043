package repository

import (
	"context"

	"github.com/tsegai/nexbank/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
