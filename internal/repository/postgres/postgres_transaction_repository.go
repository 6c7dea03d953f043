package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tsegai/nexbank/internal/infrastructure/observability"
	"github.com/tsegai/nexbank/internal/models"
	"github.com/tsegai/nexbank/internal/repository"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

type lockedAccount struct {
	id      int64
	userID  int64
	number  string
	balance decimal.Decimal
}

func lockAccount(ctx context.Context, tx *sql.Tx, number string) (*lockedAccount, error) {
	var acc lockedAccount
	query := `SELECT id, user_id, account_number, balance FROM accounts WHERE account_number = $1 FOR UPDATE`
	err := tx.QueryRowContext(ctx, query, number).Scan(&acc.id, &acc.userID, &acc.number, &acc.balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", number, err)
	}
	return &acc, nil
}

// CommitTransfer performs the debit, credit and transaction insert under a
// single database transaction. Both account rows are locked FOR UPDATE in
// account-number order so two transfers touching the same pair cannot
// deadlock, and the funds check happens on the locked balance.
func (r *PostgresTransactionRepository) CommitTransfer(ctx context.Context, req repository.CommitTransferRequest) (*models.TransferResult, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CommitTransfer")
	span.SetAttributes(
		attribute.String("sender_account", req.SenderAccount),
		attribute.String("receiver_account", req.ReceiverAccount),
		attribute.String("amount", req.Amount.String()),
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
		observability.RepositoryCalls.WithLabelValues("CommitTransfer", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CommitTransfer").Observe(time.Since(start).Seconds())
	}()

	if !req.Amount.IsPositive() {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
		return nil, err
	}
	if req.SenderAccount == req.ReceiverAccount {
		err = pkgerrors.ErrSameAccount
		return nil, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "CommitTransfer", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := dbTx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", "method", "CommitTransfer", "error", rbErr)
			}
		}
	}()

	// Lock in account-number order regardless of transfer direction.
	first, second := req.SenderAccount, req.ReceiverAccount
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*lockedAccount, 2)
	for _, number := range []string{first, second} {
		var acc *lockedAccount
		acc, err = lockAccount(ctx, dbTx, number)
		if err != nil {
			slog.Error("failed to lock account", "method", "CommitTransfer", "account_number", number, "error", err)
			return nil, err
		}
		locked[number] = acc
	}
	sender := locked[req.SenderAccount]
	receiver := locked[req.ReceiverAccount]

	if sender.balance.LessThan(req.Amount) {
		err = pkgerrors.ErrInsufficientFunds
		slog.Warn("insufficient funds at commit time",
			"method", "CommitTransfer",
			"sender_account", sender.number,
			"balance", sender.balance,
			"amount", req.Amount)
		return nil, err
	}

	senderNewBalance := sender.balance.Sub(req.Amount)
	receiverNewBalance := receiver.balance.Add(req.Amount)

	if _, err = dbTx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, senderNewBalance, sender.id); err != nil {
		slog.Error("failed to debit sender", "method", "CommitTransfer", "account_id", sender.id, "error", err)
		return nil, fmt.Errorf("failed to debit sender: %w", err)
	}
	if _, err = dbTx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, receiverNewBalance, receiver.id); err != nil {
		slog.Error("failed to credit receiver", "method", "CommitTransfer", "account_id", receiver.id, "error", err)
		return nil, fmt.Errorf("failed to credit receiver: %w", err)
	}

	txn := &models.Transaction{
		ID:                    uuid.New(),
		Type:                  models.TypeTransfer,
		Status:                models.StatusCompleted,
		Amount:                req.Amount,
		Description:           req.Description,
		SenderID:              sender.userID,
		ReceiverID:            receiver.userID,
		SenderAccountID:       sender.id,
		ReceiverAccountID:     receiver.id,
		SenderAccountNumber:   sender.number,
		ReceiverAccountNumber: receiver.number,
	}

	insert := `INSERT INTO transactions (id, type, status, amount, description, sender_id, receiver_id, sender_account_id, receiver_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`
	err = dbTx.QueryRowContext(ctx, insert,
		txn.ID, txn.Type, txn.Status, txn.Amount, txn.Description,
		txn.SenderID, txn.ReceiverID, txn.SenderAccountID, txn.ReceiverAccountID,
	).Scan(&txn.CreatedAt)
	if err != nil {
		slog.Error("failed to record transaction", "method", "CommitTransfer", "error", err)
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transfer", "method", "CommitTransfer", "error", err)
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}

	observability.TransfersCommitted.Inc()
	slog.Info("transfer committed",
		"method", "CommitTransfer",
		"transaction_id", txn.ID,
		"sender_account", sender.number,
		"receiver_account", receiver.number,
		"amount", req.Amount)

	return &models.TransferResult{
		Transaction:        txn,
		SenderNewBalance:   senderNewBalance,
		ReceiverNewBalance: receiverNewBalance,
	}, nil
}

const transactionColumns = `t.id, t.type, t.status, t.amount, t.description, t.sender_id, t.receiver_id,
	t.sender_account_id, t.receiver_account_id, sa.account_number, ra.account_number, t.created_at`

// List returns the user's transactions newest-first, optionally narrowed by
// date range and account.
func (r *PostgresTransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	span.SetAttributes(attribute.Int64("user_id", filter.UserID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactions", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactions").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT ` + transactionColumns + ` FROM transactions t
		JOIN accounts sa ON sa.id = t.sender_account_id
		JOIN accounts ra ON ra.id = t.receiver_account_id
		WHERE (t.sender_id = $1 OR t.receiver_id = $1)`
	args := []interface{}{filter.UserID}

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND t.created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND t.created_at <= $%d", len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(" AND (t.sender_account_id = $%d OR t.receiver_account_id = $%d)", len(args), len(args))
	}
	query += ` ORDER BY t.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "user_id", filter.UserID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		var txn models.Transaction
		var description sql.NullString
		if err = rows.Scan(
			&txn.ID, &txn.Type, &txn.Status, &txn.Amount, &description,
			&txn.SenderID, &txn.ReceiverID, &txn.SenderAccountID, &txn.ReceiverAccountID,
			&txn.SenderAccountNumber, &txn.ReceiverAccountNumber, &txn.CreatedAt,
		); err != nil {
			slog.Error("failed to scan transaction", "method", "List", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Description = description.String
		transactions = append(transactions, txn)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	slog.Info("transactions listed", "method", "List", "user_id", filter.UserID, "count", len(transactions))
	return transactions, nil
}
