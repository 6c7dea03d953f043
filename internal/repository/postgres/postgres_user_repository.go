package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/tsegai/nexbank/internal/models"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, email, full_name, security_question, security_answer_hash, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.SecurityQuestion,
		&user.SecurityAnswerHash,
		&user.CreatedAt,
	)

	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		slog.Warn("user not found", "method", "GetByID", "user_id", id)
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		slog.Error("failed to get user", "method", "GetByID", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}
