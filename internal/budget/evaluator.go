// Package budget computes per-category spending and threshold-crossing alert
// drafts from a transaction set and cap table. Evaluation is pure and
// stateless; callers persist drafts through the alert store.
package budget

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/models"
)

// Severity tiers for alert drafts.
const (
	SeverityMedium = "medium" // spending at or above 80% of the cap
	SeverityHigh   = "high"   // spending at or above 100% of the cap
)

var (
	mediumThreshold = decimal.NewFromInt(80)
	highThreshold   = decimal.NewFromInt(100)
	hundred         = decimal.NewFromInt(100)
)

// Draft is an alert draft produced by Evaluate, not yet persisted.
type Draft struct {
	Category   string
	Severity   string
	Title      string
	Message    string
	Percentage decimal.Decimal
}

// CategorySpending sums expense amounts grouped by category. Income
// transactions are excluded entirely.
func CategorySpending(txs []models.Transaction) map[string]decimal.Decimal {
	spending := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != models.TransactionTypeExpense {
			continue
		}
		cat := strings.ToLower(tx.Category)
		spending[cat] = spending[cat].Add(tx.Amount)
	}
	return spending
}

// Evaluate produces one draft per capped category whose spending crossed a
// threshold. Categories absent from caps, or with a non-positive cap, yield
// nothing; that also guards the division.
func Evaluate(spending map[string]decimal.Decimal, caps map[string]decimal.Decimal) []Draft {
	var drafts []Draft
	for category, capAmount := range caps {
		if !capAmount.IsPositive() {
			continue
		}
		category = strings.ToLower(category)
		spent, ok := spending[category]
		if !ok {
			continue
		}

		percentage := spent.Div(capAmount).Mul(hundred)
		switch {
		case percentage.GreaterThanOrEqual(highThreshold):
			drafts = append(drafts, Draft{
				Category:   category,
				Severity:   SeverityHigh,
				Title:      "Budget Exceeded: " + category,
				Message:    message(category, spent, capAmount, percentage),
				Percentage: percentage,
			})
		case percentage.GreaterThanOrEqual(mediumThreshold):
			drafts = append(drafts, Draft{
				Category:   category,
				Severity:   SeverityMedium,
				Title:      "Budget Alert: " + category,
				Message:    message(category, spent, capAmount, percentage),
				Percentage: percentage,
			})
		}
	}

	// Map iteration order is random; keep drafts deterministic for callers.
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].Category < drafts[j].Category })
	return drafts
}

func message(category string, spent, capAmount, percentage decimal.Decimal) string {
	return fmt.Sprintf("You've spent %s of your %s budget of %s (%s%%).",
		spent.StringFixed(2), category, capAmount.StringFixed(2), percentage.Round(0))
}
