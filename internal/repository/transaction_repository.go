package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tsegai/nexbank/internal/models"
)

// CommitTransferRequest carries the staged transfer into the atomic commit.
// Accounts are re-fetched and locked inside the transaction; the balances the
// caller saw earlier are advisory only.
type CommitTransferRequest struct {
	SenderAccount   string
	ReceiverAccount string
	Amount          decimal.Decimal
	Description     string
}

type TransactionFilter struct {
	UserID    int64
	StartDate *time.Time
	EndDate   *time.Time
	AccountID *int64
}

type TransactionRepository interface {
	// CommitTransfer debits, credits and records the transaction under a
	// single database transaction with both account rows locked.
	CommitTransfer(ctx context.Context, req CommitTransferRequest) (*models.TransferResult, error)
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}
