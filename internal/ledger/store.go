// Package ledger implements the authoritative, user-editable transaction
// store. It is the only adapter allowed to write transactions; every
// successful write pushes a change notification to subscribers so the sync
// scheduler can re-aggregate reactively.
package ledger

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tally/internal/errors"
	"tally/internal/models"
	"tally/internal/pagination"
)

// Unsubscribe removes a previously registered change listener.
type Unsubscribe func()

// Store persists ledger transactions and notifies subscribers of changes.
type Store struct {
	db *gorm.DB

	mu     sync.Mutex
	nextID int
	subs   map[int]func(userID string)
}

// NewStore creates a ledger store backed by the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, subs: make(map[int]func(string))}
}

// List returns all ledger transactions for a user, newest first.
func (s *Store) List(userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.db.Where("user_id = ? AND source = ?", userID, models.SourceLedger).
		Order("date DESC").Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txs, nil
}

// Page returns a page of ledger transactions for a user, newest first.
func (s *Store) Page(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND source = ?", userID, models.SourceLedger)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txs []models.Transaction
	if err := base.Order("date DESC").Scopes(pagination.Paginate(page)).Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UserIDs returns the distinct user ids that own ledger transactions.
func (s *Store) UserIDs() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.Transaction{}).Distinct("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// Insert validates and persists a new ledger transaction.
func (s *Store) Insert(userID string, txType models.TransactionType, amount decimal.Decimal, category, description string, date time.Time) (*models.Transaction, error) {
	if txType != models.TransactionTypeIncome && txType != models.TransactionTypeExpense {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if amount.IsNegative() {
		return nil, apperrors.ErrNegativeAmount
	}

	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount.Round(2),
		Category:    strings.ToLower(strings.TrimSpace(category)),
		Description: description,
		Date:        date,
		Source:      models.SourceLedger,
	}
	if err := s.db.Create(tx).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.notify(userID)
	return tx, nil
}

// UpdateFields holds the optional fields of a ledger update.
type UpdateFields struct {
	Type        *models.TransactionType
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *time.Time
}

// Update applies the given fields to an existing ledger transaction.
func (s *Store) Update(userID, id string, fields UpdateFields) (*models.Transaction, error) {
	tx, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Type != nil {
		if *fields.Type != models.TransactionTypeIncome && *fields.Type != models.TransactionTypeExpense {
			return nil, apperrors.ErrInvalidTransactionType
		}
		updates["type"] = *fields.Type
	}
	if fields.Amount != nil {
		if fields.Amount.IsNegative() {
			return nil, apperrors.ErrNegativeAmount
		}
		updates["amount"] = fields.Amount.Round(2)
	}
	if fields.Category != nil {
		updates["category"] = strings.ToLower(strings.TrimSpace(*fields.Category))
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}

	if len(updates) > 0 {
		if err := s.db.Model(tx).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.notify(userID)
	}
	return tx, nil
}

// Delete soft-deletes a ledger transaction.
func (s *Store) Delete(userID, id string) error {
	tx, err := s.get(userID, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(tx).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.notify(userID)
	return nil
}

// Subscribe registers a change listener invoked after every successful
// write, with the id of the affected user. The returned Unsubscribe must be
// called to release the listener.
func (s *Store) Subscribe(fn func(userID string)) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) get(userID, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.Where("id = ? AND user_id = ? AND source = ?", id, userID, models.SourceLedger).
		First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &tx, nil
}

func (s *Store) notify(userID string) {
	s.mu.Lock()
	listeners := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(userID)
	}
}
