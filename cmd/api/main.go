package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/splitbook/internal/app"
	"github.com/MrJamesThe3rd/splitbook/internal/config"
	splitbookHttp "github.com/MrJamesThe3rd/splitbook/internal/http"
	"github.com/MrJamesThe3rd/splitbook/internal/http/auth"
	groupHandler "github.com/MrJamesThe3rd/splitbook/internal/http/group"
	txHandler "github.com/MrJamesThe3rd/splitbook/internal/http/transaction"
	walletHandler "github.com/MrJamesThe3rd/splitbook/internal/http/wallet"
	"github.com/MrJamesThe3rd/splitbook/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(cfg.App.LogLevel, cfg.App.LogFormat); err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}

	if cfg.Auth.Secret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	var (
		groupH       = groupHandler.NewHandler(a.Groups, a.Dashboards, a.Warnings)
		transactionH = txHandler.NewHandler(a.Transactions)
		walletH      = walletHandler.NewHandler(a.Groups, a.Dashboards)
	)

	router := splitbookHttp.New(
		splitbookHttp.Options{AllowedOrigins: cfg.CORS.AllowedOrigins},
		auth.New(cfg.Auth.Secret, cfg.Auth.Issuer),
		a.Groups,
		groupH,
		transactionH,
		walletH,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(router, cfg.Server.Timeout, "request timed out"),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout + cfg.Server.Timeout/2,
	}

	drained := make(chan struct{})

	go func() {
		defer close(drained)

		<-ctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "name", cfg.App.Name, "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	<-drained
	slog.Info("server stopped")
}
