// Package alerts persists user alerts and enforces the dedup invariant:
// never two unread alerts with the same (title, message, type) for a user.
// The application-level check is backed by a partial unique index, so a
// concurrent insert that slips past the check still resolves to "duplicate,
// ignore" instead of a second unread copy.
package alerts

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "tally/internal/errors"
	"tally/internal/models"
	"tally/internal/pagination"
)

// Draft is the producer-facing shape of a new alert. Type passes through
// NormalizeType before storage.
type Draft struct {
	Type    string
	Title   string
	Message string
	Icon    string
}

// Result reports the outcome of CreateIfNotExists.
type Result struct {
	Created bool   `json:"created"`
	Reason  string `json:"reason,omitempty"`
}

// Store persists alerts for users.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewStore creates an alert store backed by the given database.
func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// List returns all alerts for a user, newest first.
func (s *Store) List(userID string) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return alerts, nil
}

// Page returns a page of alerts for a user, newest first.
func (s *Store) Page(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Alert], error) {
	page.Defaults()

	base := s.db.Model(&models.Alert{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var alerts []models.Alert
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&alerts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(alerts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// isDuplicate is the dedup identity check: exact, case-sensitive equality of
// title, message, and type.
func isDuplicate(a models.Alert, title, message string, alertType models.AlertType) bool {
	return a.Title == title && a.Message == message && a.Type == alertType
}

// CreateIfNotExists inserts the draft unless an unread duplicate already
// exists. Read duplicates are retired down to the single most recent one, so
// re-crossing a threshold can alert again without unbounded accumulation.
func (s *Store) CreateIfNotExists(userID string, draft Draft) (*Result, error) {
	alertType := NormalizeType(draft.Type)
	title := strings.TrimSpace(draft.Title)
	message := strings.TrimSpace(draft.Message)

	existing, err := s.List(userID)
	if err != nil {
		return nil, err
	}

	var readDups []models.Alert
	for _, a := range existing {
		if !isDuplicate(a, title, message, alertType) {
			continue
		}
		if !a.IsRead {
			return &Result{Created: false, Reason: "duplicate"}, nil
		}
		readDups = append(readDups, a)
	}

	// List is newest-first: keep the most recent read duplicate, retire the rest.
	if len(readDups) > 1 {
		for _, stale := range readDups[1:] {
			if err := s.db.Delete(&models.Alert{}, "id = ?", stale.ID).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
	}

	alert := &models.Alert{
		UserID:  userID,
		Type:    alertType,
		Title:   title,
		Message: message,
		Icon:    draft.Icon,
	}
	if err := s.db.Create(alert).Error; err != nil {
		// The partial unique index closes the check-then-act window; a
		// concurrent duplicate insert lands here.
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			s.log.Debugw("alert insert hit dedup constraint", "user_id", userID, "title", title)
			return &Result{Created: false, Reason: "duplicate"}, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &Result{Created: true}, nil
}

// MarkRead marks an alert as read. Absent or already-read alerts are a
// no-op, never an error.
func (s *Store) MarkRead(userID, id string) error {
	if err := s.db.Model(&models.Alert{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Delete removes an alert. Deleting an absent alert is a no-op.
func (s *Store) Delete(userID, id string) error {
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Alert{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAllRead removes every read alert for a user.
func (s *Store) DeleteAllRead(userID string) error {
	if err := s.db.Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Alert{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteAll removes every alert for a user.
func (s *Store) DeleteAll(userID string) error {
	if err := s.db.Where("user_id = ?", userID).Delete(&models.Alert{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// isUniqueViolation recognizes driver-level unique constraint errors that
// GORM does not translate to ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
