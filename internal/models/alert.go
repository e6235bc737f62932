package models

// AlertType is the closed set of alert types. The alerts table carries a
// CHECK constraint on this set, so every producer-supplied value must pass
// through alerts.NormalizeType before reaching storage.
type AlertType string

const (
	AlertTypeWarning AlertType = "warning"
	AlertTypeSuccess AlertType = "success"
	AlertTypeNeutral AlertType = "neutral"
)

// Alert represents a persisted user notification. Uniqueness among unread
// alerts on (user_id, title, message, type) is enforced by a partial unique
// index in the migration.
type Alert struct {
	Base
	UserID  string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    AlertType `gorm:"not null;default:neutral" json:"type"`
	Title   string    `gorm:"not null" json:"title"`
	Message string    `gorm:"not null" json:"message"`
	Icon    string    `json:"icon"`
	IsRead  bool      `gorm:"not null;default:false" json:"is_read"`
}
