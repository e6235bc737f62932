package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tally/internal/models"
	"tally/internal/uuid"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewUserID returns a fresh user id. Tests share one in-memory database, so
// every test scopes its data to its own user.
func NewUserID() string {
	return uuid.New()
}

// CreateTestTransaction creates a ledger expense transaction.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, category string, amount float64) *models.Transaction {
	t.Helper()
	return CreateTestTransactionAt(t, db, userID, category, amount, time.Now())
}

// CreateTestTransactionAt creates a ledger expense transaction with an explicit date.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, userID, category string, amount float64, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionTypeExpense,
		Amount:      decimal.NewFromFloat(amount),
		Category:    category,
		Description: fmt.Sprintf("test transaction %d", nextID()),
		Date:        date,
		Source:      models.SourceLedger,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestIncome creates a ledger income transaction.
func CreateTestIncome(t *testing.T, db *gorm.DB, userID, category string, amount float64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:   userID,
		Type:     models.TransactionTypeIncome,
		Amount:   decimal.NewFromFloat(amount),
		Category: category,
		Date:     time.Now(),
		Source:   models.SourceLedger,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test income: %v", err)
	}
	return tx
}

// CreateTestCap creates a spending cap for a category.
func CreateTestCap(t *testing.T, db *gorm.DB, userID, category string, amount float64) *models.SpendingCap {
	t.Helper()

	c := &models.SpendingCap{
		UserID:   userID,
		Category: category,
		Amount:   decimal.NewFromFloat(amount),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("failed to create test cap: %v", err)
	}
	return c
}

// CreateTestAlert creates an alert with the given read state.
func CreateTestAlert(t *testing.T, db *gorm.DB, userID string, alertType models.AlertType, title, message string, isRead bool) *models.Alert {
	t.Helper()

	a := &models.Alert{
		UserID:  userID,
		Type:    alertType,
		Title:   title,
		Message: message,
		IsRead:  isRead,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("failed to create test alert: %v", err)
	}
	return a
}
