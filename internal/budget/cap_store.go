package budget

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "tally/internal/errors"
	"tally/internal/models"
)

// CapStore persists per-category spending caps.
type CapStore struct {
	db *gorm.DB
}

// NewCapStore creates a cap store backed by the given database.
func NewCapStore(db *gorm.DB) *CapStore {
	return &CapStore{db: db}
}

// List returns all caps for a user.
func (s *CapStore) List(userID string) ([]models.SpendingCap, error) {
	var caps []models.SpendingCap
	if err := s.db.Where("user_id = ?", userID).Order("category").Find(&caps).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return caps, nil
}

// Table returns the user's caps as a category → amount lookup for Evaluate.
func (s *CapStore) Table(userID string) (map[string]decimal.Decimal, error) {
	caps, err := s.List(userID)
	if err != nil {
		return nil, err
	}
	table := make(map[string]decimal.Decimal, len(caps))
	for _, c := range caps {
		table[c.Category] = c.Amount
	}
	return table, nil
}

// UserIDs returns the distinct user ids that have caps configured.
func (s *CapStore) UserIDs() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.SpendingCap{}).Distinct("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// Set creates or replaces the cap for a category.
func (s *CapStore) Set(userID, category string, amount decimal.Decimal) (*models.SpendingCap, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Category is required")
	}

	var existing models.SpendingCap
	err := s.db.Where("user_id = ? AND category = ?", userID, category).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.Model(&existing).Update("amount", amount.Round(2)).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		c := &models.SpendingCap{UserID: userID, Category: category, Amount: amount.Round(2)}
		if err := s.db.Create(c).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return c, nil
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

// Delete removes the cap for a category. Deleting an absent cap is a no-op.
func (s *CapStore) Delete(userID, category string) error {
	category = strings.ToLower(strings.TrimSpace(category))
	if err := s.db.Where("user_id = ? AND category = ?", userID, category).
		Delete(&models.SpendingCap{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
