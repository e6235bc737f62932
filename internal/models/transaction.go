package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionSource identifies which adapter produced a transaction.
type TransactionSource string

const (
	SourceLedger       TransactionSource = "ledger"
	SourceExternalFeed TransactionSource = "external_feed"
)

// Transaction is the canonical, currency-normalized transaction shape.
// Amount is always expressed in the base currency; the native amount and
// currency of an externally sourced record are kept in RawAmount/RawCurrency
// for audit. Only ledger-sourced transactions are ever persisted; feed
// transactions are rebuilt from the most recent successful poll and exist
// only in the in-memory snapshot.
type Transaction struct {
	Base
	UserID      string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        TransactionType   `gorm:"not null" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(20,2);not null" json:"amount"`
	Category    string            `gorm:"not null" json:"category"`
	Description string            `json:"description"`
	Date        time.Time         `gorm:"not null;index" json:"date"`
	Source      TransactionSource `gorm:"not null;default:ledger" json:"source"`

	RawAmount   *decimal.Decimal `gorm:"type:decimal(20,2)" json:"raw_amount,omitempty"`
	RawCurrency string           `json:"raw_currency,omitempty"`
}
