package group

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
	"github.com/MrJamesThe3rd/splitbook/internal/http/access"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
)

type Dashboards interface {
	Group(ctx context.Context, groupID uuid.UUID, f filter.Filter, now time.Time) (*dashboard.GroupDashboard, error)
}

type Warnings interface {
	Dismiss(ctx context.Context, groupID uuid.UUID) error
}

type Handler struct {
	svc        *group.Service
	dashboards Dashboards
	warnings   Warnings
	now        func() time.Time
}

func NewHandler(svc *group.Service, dashboards Dashboards, warnings Warnings) *Handler {
	return &Handler{svc: svc, dashboards: dashboards, warnings: warnings, now: time.Now}
}

// Routes serves the group collection.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
}

// MemberRoutes serves a single group. It must be mounted below access.Group.
func (h *Handler) MemberRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Delete("/", h.delete)
	r.Put("/budget", h.setBudget)
	r.Get("/dashboard", h.dashboard)
	r.Post("/warning/dismiss", h.dismissWarning)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Delete("/categories/{categoryID}", h.deleteCategory)
}

type createGroupRequest struct {
	Name      string           `json:"name"`
	Color     string           `json:"color"`
	Budget    *decimal.Decimal `json:"budget"`
	MemberIDs []string         `json:"member_ids"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := auth.UserID(r.Context())

	g, err := h.svc.Create(r.Context(), group.CreateParams{
		Name:      req.Name,
		Color:     req.Color,
		Budget:    req.Budget,
		OwnerID:   userID,
		MemberIDs: req.MemberIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	groups, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponseList(groups))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toGroupResponse(access.GroupFrom(r.Context())))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	g := access.GroupFrom(r.Context())

	if userID, _ := auth.UserID(r.Context()); userID != g.OwnerID {
		http.Error(w, "only the owner can delete a group", http.StatusForbidden)
		return
	}

	if err := h.svc.Delete(r.Context(), g.ID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setBudgetRequest clears the budget when Budget is null.
type setBudgetRequest struct {
	Budget  *decimal.Decimal `json:"budget"`
	Version int64            `json:"version"`
}

func (h *Handler) setBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g, err := h.svc.SetBudget(r.Context(), access.GroupFrom(r.Context()).ID, req.Budget, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	f, err := filter.Normalize(filter.ParamsFromQuery(r.URL.Query()), now)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d, err := h.dashboards.Group(r.Context(), access.GroupFrom(r.Context()).ID, f, now)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardResponse(d))
}

func (h *Handler) dismissWarning(w http.ResponseWriter, r *http.Request) {
	if err := h.warnings.Dismiss(r.Context(), access.GroupFrom(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.ListCategories(r.Context(), access.GroupFrom(r.Context()).TrackerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponseList(cs))
}

type createCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), group.CategoryParams{
		TrackerID: access.GroupFrom(r.Context()).TrackerID,
		Name:      req.Name,
		Color:     req.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, categoryResponse{ID: c.ID, Name: c.Name, Color: c.Color})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "categoryID")
	if id == transaction.Uncategorized {
		http.Error(w, "the uncategorized bucket cannot be deleted", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), access.GroupFrom(r.Context()).TrackerID, id); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, group.ErrNotFound), errors.Is(err, group.ErrCategoryNotFound),
		errors.Is(err, transaction.ErrTrackerNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, group.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, group.ErrInvalidBudget), errors.Is(err, group.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.ErrorContext(r.Context(), "group request failed", "path", r.URL.Path, "error", err)
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
