// Package rates fetches the current exchange-rate snapshot from an HTTP
// endpoint and retains the last successfully fetched table. When nothing has
// ever been fetched, the built-in currency fallback table is served, so a
// table is always available.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tally/internal/currency"
)

// ratesResponse mirrors the rate endpoint payload: {"rates": {"USD": 0.0077}}
// keyed to the base currency.
type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Source polls a rate endpoint and caches the last good table.
type Source struct {
	httpClient *http.Client
	url        string // empty means static fallback only
	base       string
	log        *zap.SugaredLogger

	mu       sync.RWMutex
	lastGood currency.Table
}

// NewSource creates a rate source for the given endpoint. url may be empty,
// in which case Table always returns the built-in fallback.
func NewSource(httpClient *http.Client, url, baseCurrency string, log *zap.SugaredLogger) *Source {
	return &Source{
		httpClient: httpClient,
		url:        url,
		base:       strings.ToUpper(baseCurrency),
		log:        log,
	}
}

// Table returns the most recently fetched table, or the built-in fallback if
// no fetch has ever succeeded.
func (s *Source) Table() currency.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastGood != nil {
		return s.lastGood
	}
	return currency.Fallback()
}

// Refresh fetches the current snapshot. On any failure the previous table is
// retained and the error returned; callers treat this as a non-fatal notice.
func (s *Source) Refresh(ctx context.Context) error {
	if s.url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("building rates request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rates request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rates request: unexpected status %d", resp.StatusCode)
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decoding rates response: %w", err)
	}
	if len(payload.Rates) == 0 {
		return fmt.Errorf("rates response contained no rates")
	}

	table := make(currency.Table, len(payload.Rates)+1)
	for code, rate := range payload.Rates {
		if rate <= 0 {
			s.log.Warnw("skipping non-positive exchange rate", "code", code, "rate", rate)
			continue
		}
		table[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}
	// The base currency always maps to 1.
	table[s.base] = decimal.NewFromInt(1)

	s.mu.Lock()
	s.lastGood = table
	s.mu.Unlock()

	s.log.Debugw("exchange rates refreshed", "codes", len(table))
	return nil
}
