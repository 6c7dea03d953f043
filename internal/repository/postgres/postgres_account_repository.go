package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsegai/nexbank/internal/infrastructure/observability"
	"github.com/tsegai/nexbank/internal/models"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const accountColumns = `id, user_id, account_number, balance, currency, fully_activated, kyc_verified, created_at`

type PostgresAccountRepository struct {
	db *sql.DB
}

func NewPostgresAccountRepository(db *sql.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

func (r *PostgresAccountRepository) GetByNumber(ctx context.Context, number string) (*models.Account, error) {
	var err error
	tracer := otel.Tracer("account-repository")
	ctx, span := tracer.Start(ctx, "GetAccountByNumber")
	span.SetAttributes(attribute.String("account_number", number))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetAccountByNumber", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetAccountByNumber").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, number))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrAccountNotFound
		slog.Warn("account not found", "method", "GetByNumber", "account_number", number)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get account", "method", "GetByNumber", "account_number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}
	return account, nil
}

func (r *PostgresAccountRepository) GetByNumberForUser(ctx context.Context, number string, userID int64) (*models.Account, error) {
	var err error
	tracer := otel.Tracer("account-repository")
	ctx, span := tracer.Start(ctx, "GetAccountByNumberForUser")
	span.SetAttributes(
		attribute.String("account_number", number),
		attribute.Int64("user_id", userID),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetAccountByNumberForUser", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetAccountByNumberForUser").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 AND user_id = $2`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, number, userID))
	if stderrors.Is(err, sql.ErrNoRows) {
		// Missing and not-owned are deliberately indistinguishable here; the
		// log line keeps the detail for audit.
		err = pkgerrors.ErrAccountNotFound
		slog.Warn("account not found or not owned", "method", "GetByNumberForUser", "account_number", number, "user_id", userID)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get account", "method", "GetByNumberForUser", "account_number", number, "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get account for user: %w", err)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&account.Balance,
		&account.Currency,
		&account.FullyActivated,
		&account.KYCVerified,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
