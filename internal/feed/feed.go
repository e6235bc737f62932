// Package feed implements the read-only external payment-provider adapter.
// Records are fetched with a plain HTTP GET and are never persisted or
// mutated; each successful poll fully replaces the previous batch.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	apperrors "tally/internal/errors"
)

// Record is a raw feed record in its source-native shape. Amounts arrive as
// strings in the provider's native currency; an empty currency means the
// record is already denominated in the base currency.
type Record struct {
	Ref         string `json:"ref"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Adapter polls the external feed endpoint.
type Adapter struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	apiKey     string
}

// NewAdapter creates a feed adapter for the given endpoint.
func NewAdapter(httpClient *http.Client, baseURL, apiKey string) *Adapter {
	return &Adapter{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Configured reports whether a feed endpoint has been set. An unconfigured
// adapter polls to an empty batch.
func (a *Adapter) Configured() bool {
	return a.baseURL != ""
}

// Poll fetches the current batch of records for a user. The caller bounds
// the request through ctx; a timed-out or failed poll is reported as an
// error and callers treat it as an empty result, retaining prior state.
func (a *Adapter) Poll(ctx context.Context, userID string) ([]Record, error) {
	if a.baseURL == "" {
		return nil, nil
	}

	reqURL := a.baseURL + "?user=" + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFeedUnavailable, fmt.Errorf("feed request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Wrap(apperrors.ErrFeedUnavailable, fmt.Errorf("feed request: unexpected status %d", resp.StatusCode))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrFeedUnavailable, fmt.Errorf("decoding feed response: %w", err))
	}
	return records, nil
}
