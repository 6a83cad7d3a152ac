package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/filter"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
)

type Overviews interface {
	Wallet(ctx context.Context, walletID uuid.UUID, viewerID string, f filter.Filter, now time.Time) (*dashboard.WalletOverview, error)
}

type Handler struct {
	svc       *group.Service
	overviews Overviews
	now       func() time.Time
}

func NewHandler(svc *group.Service, overviews Overviews) *Handler {
	return &Handler{svc: svc, overviews: overviews, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{walletID}", h.get)
	r.Post("/{walletID}/groups", h.addGroup)
	r.Get("/{walletID}/overview", h.overview)
}

type walletResponse struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	OwnerID   string      `json:"owner_id"`
	MemberIDs []string    `json:"member_ids"`
	GroupIDs  []uuid.UUID `json:"group_ids"`
	CreatedAt time.Time   `json:"created_at"`
}

func toResponse(w *group.Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		Name:      w.Name,
		OwnerID:   w.OwnerID,
		MemberIDs: w.MemberIDs,
		GroupIDs:  w.GroupIDs,
		CreatedAt: w.CreatedAt,
	}
}

type createWalletRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserID(r.Context())

	wallet, err := h.svc.CreateWallet(r.Context(), group.WalletParams{
		Name:      req.Name,
		OwnerID:   userID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(wallet))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	wallets, err := h.svc.ListWallets(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]walletResponse, len(wallets))
	for i, wallet := range wallets {
		resp[i] = toResponse(wallet)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.load(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toResponse(wallet))
}

type addGroupRequest struct {
	GroupID uuid.UUID `json:"group_id"`
}

// addGroup links a group the caller also belongs to.
func (h *Handler) addGroup(w http.ResponseWriter, r *http.Request) {
	var req addGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	wallet, ok := h.load(w, r)
	if !ok {
		return
	}

	g, err := h.svc.Get(r.Context(), req.GroupID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if userID, _ := auth.UserID(r.Context()); !g.HasMember(userID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.svc.AddGroupToWallet(r.Context(), wallet.ID, g.ID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type periodResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type sumResponse struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type groupSummaryResponse struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Totals sumResponse `json:"totals"`
}

type overviewResponse struct {
	Wallet walletResponse         `json:"wallet"`
	Period periodResponse         `json:"period"`
	Groups []groupSummaryResponse `json:"groups"`
	Total  sumResponse            `json:"total"`
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	wallet, ok := h.load(w, r)
	if !ok {
		return
	}

	now := h.now()

	f, err := filter.Normalize(filter.ParamsFromQuery(r.URL.Query()), now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserID(r.Context())

	o, err := h.overviews.Wallet(r.Context(), wallet.ID, userID, f, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := overviewResponse{
		Wallet: toResponse(o.Wallet),
		Period: periodResponse{Start: o.Period.Start, End: o.Period.End},
		Groups: make([]groupSummaryResponse, len(o.Groups)),
		Total:  sumResponse{Income: o.Total.Income, Expense: o.Total.Expense, Balance: o.Total.Balance()},
	}

	for i, s := range o.Groups {
		resp.Groups[i] = groupSummaryResponse{
			ID:     s.Group.ID,
			Name:   s.Group.Name,
			Totals: sumResponse{Income: s.Totals.Income, Expense: s.Totals.Expense, Balance: s.Totals.Balance()},
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*group.Wallet, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "walletID"))
	if err != nil {
		http.Error(w, "invalid wallet id", http.StatusBadRequest)
		return nil, false
	}

	wallet, err := h.svc.GetWallet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	if userID, _ := auth.UserID(r.Context()); !wallet.HasMember(userID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}

	return wallet, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, group.ErrWalletNotFound), errors.Is(err, group.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, group.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.ErrorContext(r.Context(), "wallet request failed", "path", r.URL.Path, "error", err)
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
