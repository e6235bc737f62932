package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tally/internal/ledger"
	"tally/internal/middleware"
	"tally/internal/models"
	"tally/internal/testutil"
	"tally/internal/validator"
)

type stubSnapshot struct {
	txs []models.Transaction
}

func (s *stubSnapshot) Transactions(string) []models.Transaction { return s.txs }

func setupTransactionRouter(t *testing.T, snapshot Snapshotter) (*gin.Engine, *ledger.Store) {
	t.Helper()
	validator.Register()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	store := ledger.NewStore(db)
	handler := NewTransactionHandler(snapshot, store)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.GET("/transactions", handler.GetTransactions)
	v1.POST("/ledger", handler.CreateLedgerEntry)
	v1.GET("/ledger", handler.GetLedgerEntries)
	v1.PUT("/ledger/:id", handler.UpdateLedgerEntry)
	v1.DELETE("/ledger/:id", handler.DeleteLedgerEntry)
	return r, store
}

func doJSON(r *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetTransactions(t *testing.T) {
	t.Run("returns_paged_snapshot", func(t *testing.T) {
		snapshot := &stubSnapshot{}
		for i := 0; i < 5; i++ {
			tx := models.Transaction{
				Type:   models.TransactionTypeExpense,
				Amount: decimal.NewFromInt(int64(i + 1)),
				Date:   time.Now().Add(-time.Duration(i) * time.Hour),
			}
			tx.ID = fmt.Sprintf("tx-%d", i)
			snapshot.txs = append(snapshot.txs, tx)
		}
		r, _ := setupTransactionRouter(t, snapshot)

		rec := doJSON(r, http.MethodGet, "/api/v1/transactions?page=1&page_size=2", testutil.NewUserID(), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var page struct {
			Data       []models.Transaction `json:"data"`
			TotalItems int64                `json:"total_items"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("failed to parse page: %v", err)
		}
		if len(page.Data) != 2 {
			t.Errorf("expected 2 transactions on page, got %d", len(page.Data))
		}
		if page.TotalItems != 5 {
			t.Errorf("expected 5 total, got %d", page.TotalItems)
		}
	})

	t.Run("requires_identity", func(t *testing.T) {
		r, _ := setupTransactionRouter(t, &stubSnapshot{})
		rec := doJSON(r, http.MethodGet, "/api/v1/transactions", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestLedgerCRUD(t *testing.T) {
	t.Run("create_read_update_delete", func(t *testing.T) {
		r, _ := setupTransactionRouter(t, &stubSnapshot{})
		userID := testutil.NewUserID()

		rec := doJSON(r, http.MethodPost, "/api/v1/ledger", userID, gin.H{
			"type":     "expense",
			"amount":   "245.50",
			"category": "Food",
			"date":     "2026-03-10T00:00:00Z",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var created struct {
			Transaction models.Transaction `json:"transaction"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("failed to parse create response: %v", err)
		}
		if created.Transaction.Category != "food" {
			t.Errorf("expected canonical category food, got %q", created.Transaction.Category)
		}

		rec = doJSON(r, http.MethodGet, "/api/v1/ledger", userID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		rec = doJSON(r, http.MethodPut, "/api/v1/ledger/"+created.Transaction.ID, userID, gin.H{
			"description": "weekly groceries",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(r, http.MethodDelete, "/api/v1/ledger/"+created.Transaction.ID, userID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}

		rec = doJSON(r, http.MethodDelete, "/api/v1/ledger/"+created.Transaction.ID, userID, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for deleted entry, got %d", rec.Code)
		}
	})

	t.Run("invalid_type_is_rejected", func(t *testing.T) {
		r, _ := setupTransactionRouter(t, &stubSnapshot{})

		rec := doJSON(r, http.MethodPost, "/api/v1/ledger", testutil.NewUserID(), gin.H{
			"type":     "transfer",
			"amount":   "10",
			"category": "food",
			"date":     "2026-03-10T00:00:00Z",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("users_cannot_touch_each_others_entries", func(t *testing.T) {
		r, store := setupTransactionRouter(t, &stubSnapshot{})
		owner := testutil.NewUserID()

		tx, err := store.Insert(owner, models.TransactionTypeExpense, decimal.NewFromInt(10), "food", "", time.Now())
		testutil.AssertNoError(t, err)

		rec := doJSON(r, http.MethodDelete, "/api/v1/ledger/"+tx.ID, testutil.NewUserID(), nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 across users, got %d", rec.Code)
		}
	})
}
