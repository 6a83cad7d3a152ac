package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

type transactionResponse struct {
	ID          uuid.UUID        `json:"id"`
	TrackerID   uuid.UUID        `json:"tracker_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Type        transaction.Type `json:"type"`
	Time        time.Time        `json:"time"`
	CategoryID  string           `json:"category_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"owner_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		TrackerID:   tx.TrackerID,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Time:        tx.Time,
		CategoryID:  tx.CategoryID,
		Name:        tx.Name,
		Description: tx.Description,
		OwnerID:     tx.OwnerID,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
