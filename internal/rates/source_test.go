package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/logger"
)

func TestTable(t *testing.T) {
	t.Run("serves_fallback_before_first_fetch", func(t *testing.T) {
		source := NewSource(http.DefaultClient, "", "KES", logger.Get())
		table := source.Table()

		require.NotEmpty(t, table)
		assert.True(t, table["KES"].Equal(decimal.NewFromInt(1)))
	})

	t.Run("empty_url_refresh_is_a_noop", func(t *testing.T) {
		source := NewSource(http.DefaultClient, "", "KES", logger.Get())
		require.NoError(t, source.Refresh(context.Background()))
	})
}

func TestRefresh(t *testing.T) {
	t.Run("fetches_table_and_pins_base_to_one", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"rates":{"usd":0.008,"EUR":0.0072,"KES":2.0}}`))
		}))
		defer server.Close()

		source := NewSource(server.Client(), server.URL, "KES", logger.Get())
		require.NoError(t, source.Refresh(context.Background()))

		table := source.Table()
		assert.True(t, table["KES"].Equal(decimal.NewFromInt(1)), "base rate must be forced to 1")
		assert.Equal(t, "0.008", table["USD"].String(), "codes are uppercased")
		assert.Equal(t, "0.0072", table["EUR"].String())
	})

	t.Run("skips_non_positive_rates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"rates":{"USD":0.008,"BAD":0,"WORSE":-3}}`))
		}))
		defer server.Close()

		source := NewSource(server.Client(), server.URL, "KES", logger.Get())
		require.NoError(t, source.Refresh(context.Background()))

		table := source.Table()
		_, hasBad := table["BAD"]
		_, hasWorse := table["WORSE"]
		assert.False(t, hasBad)
		assert.False(t, hasWorse)
	})

	t.Run("failure_retains_last_good_table", func(t *testing.T) {
		var fail atomic.Bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"rates":{"USD":0.008}}`))
		}))
		defer server.Close()

		source := NewSource(server.Client(), server.URL, "KES", logger.Get())
		require.NoError(t, source.Refresh(context.Background()))
		good := source.Table()

		fail.Store(true)
		err := source.Refresh(context.Background())
		require.Error(t, err)
		assert.Equal(t, good, source.Table(), "failed refresh must not clobber the last good table")
	})

	t.Run("empty_rates_payload_is_an_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"rates":{}}`))
		}))
		defer server.Close()

		source := NewSource(server.Client(), server.URL, "KES", logger.Get())
		require.Error(t, source.Refresh(context.Background()))
	})
}
