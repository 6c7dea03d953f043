package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	repository "github.com/tsegai/nexbank/internal/repository/postgres"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
)

func TestPostgresUserRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT id, email, full_name, security_question, security_answer_hash, created_at FROM users WHERE id = $1`)
	columns := []string{"id", "email", "full_name", "security_question", "security_answer_hash", "created_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(10), "sender@example.com", "Sender One", "favourite colour?", "$2a$10$hash", time.Now()))

		user, err := repo.GetByID(ctx, 10)
		assert.NoError(t, err)
		assert.Equal(t, int64(10), user.ID)
		assert.Equal(t, "sender@example.com", user.Email)
		assert.Equal(t, "favourite colour?", user.SecurityQuestion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetByID(ctx, 99)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(int64(10)).
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetByID(ctx, 10)
		assert.Nil(t, user)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
