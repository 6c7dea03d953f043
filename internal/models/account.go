package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account balances are mutated only inside the ledger commit; the activation
// flags are owned by an external onboarding process.
type Account struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	AccountNumber  string          `json:"account_number"`
	Balance        decimal.Decimal `json:"balance"`
	Currency       string          `json:"currency"`
	FullyActivated bool            `json:"fully_activated"`
	KYCVerified    bool            `json:"kyc_verified"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (a *Account) CanTransact() bool {
	return a.FullyActivated && a.KYCVerified
}
