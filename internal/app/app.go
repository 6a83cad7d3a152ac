// Package app wires the services shared by the API server and the terminal UI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/splitbook/internal/aggregate"
	"github.com/MrJamesThe3rd/splitbook/internal/config"
	"github.com/MrJamesThe3rd/splitbook/internal/dashboard"
	"github.com/MrJamesThe3rd/splitbook/internal/database"
	"github.com/MrJamesThe3rd/splitbook/internal/group"
	groupStore "github.com/MrJamesThe3rd/splitbook/internal/group/store"
	"github.com/MrJamesThe3rd/splitbook/internal/notify"
	"github.com/MrJamesThe3rd/splitbook/internal/notify/amqp"
	"github.com/MrJamesThe3rd/splitbook/internal/query"
	"github.com/MrJamesThe3rd/splitbook/internal/transaction"
	txStore "github.com/MrJamesThe3rd/splitbook/internal/transaction/store"
	"github.com/MrJamesThe3rd/splitbook/internal/warning"
)

type App struct {
	Groups       *group.Service
	Transactions *transaction.Service
	Engine       *aggregate.Engine
	Warnings     *warning.Dispatcher
	Dashboards   *dashboard.Service

	closers []func() error
}

// New connects to Postgres, applies migrations and builds every service.
// Redis and AMQP are optional: without them warning state stays in memory
// and warnings are only logged.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a := &App{closers: []func() error{db.Close}}

	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	states := a.warningStore(ctx, cfg)

	a.build(cfg, db, states, a.notifier(cfg))

	return a, nil
}

func (a *App) build(cfg *config.Config, db *sql.DB, states warning.StateStore, notifier warning.Notifier) {
	builder := query.NewBuilder(cfg.Query.MaxMembership, cfg.Query.ListLimit)
	txs := txStore.New(db)

	a.Groups = group.NewService(groupStore.New(db))
	a.Transactions = transaction.NewService(txs, builder)
	a.Engine = aggregate.NewEngine(txs, builder)
	a.Warnings = warning.NewDispatcher(states, notifier)
	a.Dashboards = dashboard.NewService(a.Groups, a.Transactions, a.Engine, a.Warnings)
}

func (a *App) warningStore(ctx context.Context, cfg *config.Config) warning.StateStore {
	if cfg.Redis.Addr == "" {
		slog.Info("redis disabled, warning state is kept in memory")
		return warning.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		slog.Warn("failed to reach redis, warning state is kept in memory", "addr", cfg.Redis.Addr, "error", err)

		return warning.NewMemoryStore()
	}

	a.closers = append(a.closers, client.Close)
	slog.Info("warning state stored in redis", "addr", cfg.Redis.Addr)

	return warning.NewRedisStore(client, cfg.Redis.TTL)
}

func (a *App) notifier(cfg *config.Config) warning.Notifier {
	notifiers := notify.Multi{notify.Log{}}

	if cfg.AMQP.URL == "" {
		return notifiers
	}

	publisher, err := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
	if err != nil {
		slog.Warn("failed to initialize AMQP publisher, warnings will only be logged", "error", err)
		return notifiers
	}

	a.closers = append(a.closers, publisher.Close)
	slog.Info("budget warnings published over AMQP", "exchange", cfg.AMQP.Exchange)

	return append(notifiers, publisher)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	a.closers = nil

	return errors.Join(errs...)
}
