package alerts

import (
	"strings"

	"tally/internal/models"
)

// typeAliases maps every known producer-supplied type value onto the closed
// alert type set. The original producers emitted severity words, legacy level
// names, and bare emoji glyphs interchangeably; anything not listed here is
// neutral.
var typeAliases = map[string]models.AlertType{
	"warning":  models.AlertTypeWarning,
	"warn":     models.AlertTypeWarning,
	"danger":   models.AlertTypeWarning,
	"critical": models.AlertTypeWarning,
	"high":     models.AlertTypeWarning,
	"medium":   models.AlertTypeWarning,
	"error":    models.AlertTypeWarning,
	"⚠️":       models.AlertTypeWarning,
	"💸":        models.AlertTypeWarning,

	"success": models.AlertTypeSuccess,
	"goal":    models.AlertTypeSuccess,
	"ok":      models.AlertTypeSuccess,
	"🎉":       models.AlertTypeSuccess,
	"✅":       models.AlertTypeSuccess,

	"neutral": models.AlertTypeNeutral,
	"info":    models.AlertTypeNeutral,
	"notice":  models.AlertTypeNeutral,
}

// NormalizeType maps any producer-supplied type value to exactly one member
// of the closed alert type set. It is total: the storage layer enforces the
// set with a CHECK constraint, so there is no passthrough for unknown values.
func NormalizeType(raw string) models.AlertType {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return models.AlertTypeNeutral
}
