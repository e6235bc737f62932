// Package reconcile normalizes raw records from the source adapters into the
// canonical Transaction shape and merges them into one ordered, deduplicated
// collection. Currency conversion to the base currency happens here, at
// merge time; unparseable records are dropped with a warning instead of
// aborting the batch.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/currency"
	"tally/internal/feed"
	"tally/internal/models"
)

// Warning records a raw record that was dropped during normalization.
type Warning struct {
	Index  int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d dropped: %s", w.Index, w.Reason)
}

// dateLayouts are tried in order when parsing feed dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// FromFeed normalizes a batch of raw feed records. Identity prefers the
// source-supplied reference (namespaced "mpesa-ref-<ref>"); records without
// one get a synthesized id from the poll timestamp and sequence index, which
// is a display key only, never persistence identity. Amounts are converted
// to the base currency; the native amount and currency are retained for
// audit.
func FromFeed(userID string, records []feed.Record, base string, table currency.Table, now time.Time) ([]models.Transaction, []Warning) {
	txs := make([]models.Transaction, 0, len(records))
	var warnings []Warning

	for i, rec := range records {
		date, err := parseDate(rec.Date)
		if err != nil {
			warnings = append(warnings, Warning{Index: i, Reason: err.Error()})
			continue
		}

		raw, err := decimal.NewFromString(strings.TrimSpace(rec.Amount))
		if err != nil || raw.IsNegative() {
			warnings = append(warnings, Warning{Index: i, Reason: fmt.Sprintf("unparseable amount %q", rec.Amount)})
			continue
		}

		// An empty currency means the record is already base-denominated,
		// so conversion is the identity.
		from := strings.ToUpper(rec.Currency)
		if from == "" {
			from = base
		}
		// Quantize at ingestion: the canonical amount is the stored shape.
		amount := currency.Quantize(currency.Convert(raw, from, base, table))

		txType := models.TransactionTypeExpense
		if strings.EqualFold(rec.Type, string(models.TransactionTypeIncome)) {
			txType = models.TransactionTypeIncome
		}

		rawAmount := raw
		tx := models.Transaction{
			UserID:      userID,
			Type:        txType,
			Amount:      amount,
			Category:    canonicalCategory(rec.Category),
			Description: rec.Description,
			Date:        date,
			Source:      models.SourceExternalFeed,
			RawAmount:   &rawAmount,
			RawCurrency: from,
		}
		tx.ID = feedID(rec.Ref, now, i)
		tx.CreatedAt = now
		tx.UpdatedAt = now
		txs = append(txs, tx)
	}
	return txs, warnings
}

// FromLedger canonicalizes ledger rows. Ledger amounts are already stored in
// the base currency, so only the category casing is normalized.
func FromLedger(rows []models.Transaction) []models.Transaction {
	txs := make([]models.Transaction, len(rows))
	for i, row := range rows {
		row.Category = canonicalCategory(row.Category)
		row.Source = models.SourceLedger
		txs[i] = row
	}
	return txs
}

// Merge concatenates the adapters' normalized batches, sorts by date
// descending with ties keeping input order, and removes duplicate ids within
// the pass (first occurrence wins). No adapter is assumed to come first.
func Merge(batches ...[]models.Transaction) []models.Transaction {
	var all []models.Transaction
	for _, batch := range batches {
		all = append(all, batch...)
	}

	// Stable sort keeps the concatenation order for equal dates.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})

	seen := make(map[string]struct{}, len(all))
	merged := all[:0]
	for _, tx := range all {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		merged = append(merged, tx)
	}
	return merged
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func canonicalCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	if c == "" {
		return "uncategorized"
	}
	return c
}

// feedID assigns identity to a feed record: the namespaced source reference
// when present, otherwise a synthesized, display-only key.
func feedID(ref string, now time.Time, seq int) string {
	ref = strings.TrimSpace(ref)
	if ref != "" {
		return "mpesa-ref-" + ref
	}
	return fmt.Sprintf("feed-%d-%d", now.UnixMilli(), seq)
}
