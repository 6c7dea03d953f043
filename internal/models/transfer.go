package models

import "github.com/shopspring/decimal"

// PendingTransfer is the staged transfer held between the protocol steps.
// It lives only in the session store and is consumed at most once.
type PendingTransfer struct {
	SenderAccount   string          `json:"sender_account"`
	ReceiverAccount string          `json:"receiver_account"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
}

// TransferResult is returned by the atomic ledger commit.
type TransferResult struct {
	Transaction        *Transaction
	SenderNewBalance   decimal.Decimal
	ReceiverNewBalance decimal.Decimal
}
