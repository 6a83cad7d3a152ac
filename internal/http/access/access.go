// Package access loads the group named in the URL and checks that the caller
// belongs to it.
package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/splitbook/internal/group"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
)

type ctxKey struct{}

type Groups interface {
	Get(ctx context.Context, id uuid.UUID) (*group.Group, error)
}

// Group is chi middleware for routes under {groupID}. Non-members get 403.
func Group(groups Groups) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "groupID"))
			if err != nil {
				http.Error(w, "invalid group id", http.StatusBadRequest)
				return
			}

			g, err := groups.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, group.ErrNotFound) {
					http.Error(w, "group not found", http.StatusNotFound)
					return
				}

				slog.ErrorContext(r.Context(), "failed to load group", "group_id", id, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)

				return
			}

			userID, _ := auth.UserID(r.Context())
			if !g.HasMember(userID) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, g)))
		})
	}
}

// GroupFrom returns the group stored by Group. It panics outside a Group route.
func GroupFrom(ctx context.Context) *group.Group {
	return ctx.Value(ctxKey{}).(*group.Group)
}
