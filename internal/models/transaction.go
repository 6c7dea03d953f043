package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                    uuid.UUID       `json:"id"`
	Type                  TransactionType `json:"type"`
	Status                StatusType      `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Description           string          `json:"description,omitempty"`
	SenderID              int64           `json:"sender_id"`
	ReceiverID            int64           `json:"receiver_id"`
	SenderAccountID       int64           `json:"sender_account_id"`
	ReceiverAccountID     int64           `json:"receiver_account_id"`
	SenderAccountNumber   string          `json:"sender_account_number"`
	ReceiverAccountNumber string          `json:"receiver_account_number"`
	CreatedAt             time.Time       `json:"created_at"`
}

type TransactionType string

const (
	TypeTransfer TransactionType = "transfer"
	TypeDeposit  TransactionType = "deposit"
)

type StatusType string

const (
	StatusPending   StatusType = "pending"
	StatusCompleted StatusType = "completed"
	StatusFailed    StatusType = "failed"
)
