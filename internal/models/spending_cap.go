package models

import "github.com/shopspring/decimal"

// SpendingCap is a per-category spending ceiling in the base currency.
// Caps with a non-positive amount are ignored by the budget evaluator.
type SpendingCap struct {
	Base
	UserID   string          `gorm:"type:uuid;not null;uniqueIndex:idx_caps_user_category" json:"user_id"`
	Category string          `gorm:"not null;uniqueIndex:idx_caps_user_category" json:"category"`
	Amount   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
}
