package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/models"
	"tally/internal/pagination"
	"tally/internal/testutil"
)

func TestInsert(t *testing.T) {
	t.Run("creates_ledger_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()

		tx, err := store.Insert(userID, models.TransactionTypeExpense, decimal.RequireFromString("150.505"), "  Food ", "lunch", time.Now())
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected a generated transaction id")
		}
		if tx.Amount.StringFixed(2) != "150.51" {
			t.Errorf("expected amount rounded to 150.51, got %s", tx.Amount)
		}
		if tx.Category != "food" {
			t.Errorf("expected canonical category food, got %q", tx.Category)
		}
		if tx.Source != models.SourceLedger {
			t.Errorf("expected source ledger, got %s", tx.Source)
		}
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)

		_, err := store.Insert(testutil.NewUserID(), "transfer", decimal.NewFromInt(10), "food", "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_TRANSACTION_TYPE")
	})

	t.Run("negative_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)

		_, err := store.Insert(testutil.NewUserID(), models.TransactionTypeExpense, decimal.NewFromInt(-10), "food", "", time.Now())
		testutil.AssertAppError(t, err, "NEGATIVE_AMOUNT")
	})

	t.Run("zero_amount_is_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)

		_, err := store.Insert(testutil.NewUserID(), models.TransactionTypeExpense, decimal.Zero, "food", "", time.Now())
		testutil.AssertNoError(t, err)
	})
}

func TestList(t *testing.T) {
	t.Run("newest_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()

		old := testutil.CreateTestTransactionAt(t, db, userID, "food", 10, time.Now().Add(-48*time.Hour))
		recent := testutil.CreateTestTransactionAt(t, db, userID, "food", 20, time.Now())

		txs, err := store.List(userID)
		testutil.AssertNoError(t, err)
		if len(txs) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(txs))
		}
		if txs[0].ID != recent.ID || txs[1].ID != old.ID {
			t.Error("expected transactions ordered by date descending")
		}
	})

	t.Run("scoped_to_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()
		testutil.CreateTestTransaction(t, db, userID, "food", 10)
		testutil.CreateTestTransaction(t, db, testutil.NewUserID(), "food", 20)

		txs, err := store.List(userID)
		testutil.AssertNoError(t, err)
		if len(txs) != 1 {
			t.Errorf("expected 1 transaction for user, got %d", len(txs))
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()
		tx := testutil.CreateTestTransaction(t, db, userID, "food", 100)

		newCategory := "Groceries"
		_, err := store.Update(userID, tx.ID, UpdateFields{Category: &newCategory})
		testutil.AssertNoError(t, err)

		txs, _ := store.List(userID)
		if txs[0].Category != "groceries" {
			t.Errorf("expected updated category groceries, got %q", txs[0].Category)
		}
		if txs[0].Amount.StringFixed(2) != "100.00" {
			t.Errorf("expected amount untouched, got %s", txs[0].Amount)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)

		_, err := store.Update(testutil.NewUserID(), testutil.NewUserID(), UpdateFields{})
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("rejects_negative_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()
		tx := testutil.CreateTestTransaction(t, db, userID, "food", 100)

		bad := decimal.NewFromInt(-5)
		_, err := store.Update(userID, tx.ID, UpdateFields{Amount: &bad})
		testutil.AssertAppError(t, err, "NEGATIVE_AMOUNT")
	})
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewStore(db)
	userID := testutil.NewUserID()
	tx := testutil.CreateTestTransaction(t, db, userID, "food", 100)

	testutil.AssertNoError(t, store.Delete(userID, tx.ID))

	txs, _ := store.List(userID)
	if len(txs) != 0 {
		t.Errorf("expected no transactions after delete, got %d", len(txs))
	}

	err := store.Delete(userID, tx.ID)
	testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
}

func TestUserIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewStore(db)

	a := testutil.NewUserID()
	b := testutil.NewUserID()
	testutil.CreateTestTransaction(t, db, a, "food", 10)
	testutil.CreateTestTransaction(t, db, a, "rent", 10)
	testutil.CreateTestTransaction(t, db, b, "food", 10)

	ids, err := store.UserIDs()
	testutil.AssertNoError(t, err)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Errorf("expected both users in %v", ids)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 distinct users, got %d", len(ids))
	}
}

func TestSubscribe(t *testing.T) {
	t.Run("writes_notify_subscribers", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()

		var notified []string
		unsub := store.Subscribe(func(id string) { notified = append(notified, id) })
		defer unsub()

		tx, err := store.Insert(userID, models.TransactionTypeExpense, decimal.NewFromInt(10), "food", "", time.Now())
		testutil.AssertNoError(t, err)

		desc := "updated"
		_, err = store.Update(userID, tx.ID, UpdateFields{Description: &desc})
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, store.Delete(userID, tx.ID))

		if len(notified) != 3 {
			t.Fatalf("expected 3 notifications, got %d", len(notified))
		}
		for _, id := range notified {
			if id != userID {
				t.Errorf("expected notification for %s, got %s", userID, id)
			}
		}
	})

	t.Run("empty_update_does_not_notify", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()
		tx := testutil.CreateTestTransaction(t, db, userID, "food", 10)

		var count int
		unsub := store.Subscribe(func(string) { count++ })
		defer unsub()

		_, err := store.Update(userID, tx.ID, UpdateFields{})
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected no notification for a no-op update, got %d", count)
		}
	})

	t.Run("unsubscribe_stops_notifications", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewStore(db)
		userID := testutil.NewUserID()

		var count int
		unsub := store.Subscribe(func(string) { count++ })
		unsub()

		_, err := store.Insert(userID, models.TransactionTypeExpense, decimal.NewFromInt(10), "food", "", time.Now())
		testutil.AssertNoError(t, err)
		if count != 0 {
			t.Errorf("expected no notifications after unsubscribe, got %d", count)
		}
	})
}

func TestLedgerPage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store := NewStore(db)
	userID := testutil.NewUserID()

	base := time.Now()
	for i := 0; i < 7; i++ {
		testutil.CreateTestTransactionAt(t, db, userID, "food", float64(i+1), base.Add(-time.Duration(i)*time.Hour))
	}

	page, err := store.Page(userID, pagination.PageRequest{Page: 2, PageSize: 3})
	testutil.AssertNoError(t, err)
	if len(page.Data) != 3 {
		t.Errorf("expected 3 transactions on page 2, got %d", len(page.Data))
	}
	if page.TotalItems != 7 {
		t.Errorf("expected 7 total, got %d", page.TotalItems)
	}
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
}
