package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "tally/internal/errors"
	"tally/internal/ledger"
	"tally/internal/models"
	"tally/internal/pagination"
)

// Snapshotter is the slice of the sync scheduler the transaction handler
// consumes: the merged, currency-normalized transaction snapshot.
type Snapshotter interface {
	Transactions(userID string) []models.Transaction
}

// TransactionHandler serves the merged snapshot and ledger CRUD. It contains
// no reconciliation logic; writes go to the ledger store and the snapshot is
// read as produced by the scheduler.
type TransactionHandler struct {
	snapshot Snapshotter
	ledger   *ledger.Store
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(snapshot Snapshotter, ledgerStore *ledger.Store) *TransactionHandler {
	return &TransactionHandler{snapshot: snapshot, ledger: ledgerStore}
}

// GetTransactions returns a page of the merged transaction snapshot.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	txs := h.snapshot.Transactions(userID)
	c.JSON(http.StatusOK, pagination.Slice(txs, page))
}

// CreateLedgerEntryRequest represents the request payload for a new ledger transaction.
type CreateLedgerEntryRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	Amount      decimal.Decimal        `json:"amount" binding:"required"`
	Category    string                 `json:"category" binding:"required,min=1,max=100"`
	Description string                 `json:"description" binding:"max=500"`
	Date        time.Time              `json:"date" binding:"required"`
}

// UpdateLedgerEntryRequest represents the request payload for updating a ledger transaction.
type UpdateLedgerEntryRequest struct {
	Type        *models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
	Amount      *decimal.Decimal        `json:"amount"`
	Category    *string                 `json:"category" binding:"omitempty,min=1,max=100"`
	Description *string                 `json:"description" binding:"omitempty,max=500"`
	Date        *time.Time              `json:"date"`
}

// CreateLedgerEntry handles the creation of a new ledger transaction.
func (h *TransactionHandler) CreateLedgerEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledger.Insert(userID, req.Type, req.Amount, req.Category, req.Description, req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

// GetLedgerEntries returns a page of the user's ledger transactions.
func (h *TransactionHandler) GetLedgerEntries(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.ledger.Page(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateLedgerEntry applies a partial update to a ledger transaction.
func (h *TransactionHandler) UpdateLedgerEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	tx, err := h.ledger.Update(userID, c.Param("id"), ledger.UpdateFields{
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DeleteLedgerEntry removes a ledger transaction.
func (h *TransactionHandler) DeleteLedgerEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ledger.Delete(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
