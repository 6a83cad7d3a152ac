package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/splitbook/internal/http/access"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	"github.com/MrJamesThe3rd/splitbook/internal/http/group"
	"github.com/MrJamesThe3rd/splitbook/internal/http/transaction"
	"github.com/MrJamesThe3rd/splitbook/internal/http/wallet"
)

type Options struct {
	AllowedOrigins []string
}

func New(
	opts Options,
	authn *auth.Authenticator,
	groups access.Groups,
	groupsV1 *group.Handler,
	transactionsV1 *transaction.Handler,
	walletsV1 *wallet.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Middleware)
		r.Use(middleware.AllowContentType("application/json"))

		r.Route("/groups", func(r chi.Router) {
			groupsV1.Routes(r)

			r.Route("/{groupID}", func(r chi.Router) {
				r.Use(access.Group(groups))
				groupsV1.MemberRoutes(r)
				r.Route("/transactions", transactionsV1.Routes)
			})
		})

		r.Route("/wallets", walletsV1.Routes)
	})

	return router
}
