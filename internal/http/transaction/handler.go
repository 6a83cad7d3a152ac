package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/http/access"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

// Handler serves a group's transactions. It must be mounted below
// access.Group.
type Handler struct {
	svc *transaction.Service
	now func() time.Time
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}", h.update)
}

type createTransactionRequest struct {
	Amount      decimal.Decimal  `json:"amount"`
	Type        transaction.Type `json:"type"`
	Time        time.Time        `json:"time"`
	CategoryID  string           `json:"category_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Time.IsZero() {
		req.Time = h.now()
	}

	userID, _ := auth.UserID(r.Context())

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		TrackerID:   access.GroupFrom(r.Context()).TrackerID,
		Amount:      req.Amount,
		Type:        req.Type,
		Time:        req.Time,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	f, err := filter.Normalize(filter.ParamsFromQuery(r.URL.Query()), now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	txs, err := h.svc.List(r.Context(), access.GroupFrom(r.Context()).TrackerID, f, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tx.ID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type updateTransactionRequest struct {
	Amount      *decimal.Decimal  `json:"amount,omitempty"`
	Type        *transaction.Type `json:"type,omitempty"`
	Time        *time.Time        `json:"time,omitempty"`
	CategoryID  *string           `json:"category_id,omitempty"`
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, ok := h.load(w, r)
	if !ok {
		return
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}

	if req.Type != nil {
		tx.Type = *req.Type
	}

	if req.Time != nil {
		tx.Time = *req.Time
	}

	if req.CategoryID != nil {
		tx.CategoryID = *req.CategoryID
	}

	if req.Name != nil {
		tx.Name = *req.Name
	}

	if req.Description != nil {
		tx.Description = *req.Description
	}

	if err := h.svc.Update(r.Context(), tx); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

// load fetches the {id} transaction and hides rows of other groups.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*transaction.Transaction, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	if tx.TrackerID != access.GroupFrom(r.Context()).TrackerID {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return nil, false
	}

	return tx, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, transaction.ErrTrackerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, transaction.ErrInvalidType),
		errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrInvalidCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.ErrorContext(r.Context(), "transaction request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
