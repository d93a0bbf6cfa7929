// Package backend opens the store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/config"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/brizuela-go/takeorderhd/internal/store/memory"
	"github.com/brizuela-go/takeorderhd/internal/store/mongo"
	"github.com/brizuela-go/takeorderhd/internal/store/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// SeedableStore is a store that can also load reference data.
type SeedableStore interface {
	store.Store
	store.Seeder
}

// Backend is an open store plus its lifecycle hooks.
type Backend struct {
	Store SeedableStore

	// Run follows the store's change feed until ctx is done. Nil for
	// stores that notify synchronously.
	Run func(ctx context.Context) error

	Close func()
}

// Open connects to the store named by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverMongo:
		return openMongo(ctx, cfg, log)
	case config.DriverMemory:
		return &Backend{Store: memory.New(), Close: func() {}}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Backend, error) {
	if cfg.RunMigrations {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database")

	st := postgres.New(pool, log)
	return &Backend{Store: st, Run: st.Run, Close: pool.Close}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Backend, error) {
	st := mongo.New(cfg.MongoURI, cfg.MongoDatabase, log)
	if err := st.Start(ctx); err != nil {
		return nil, err
	}
	return &Backend{
		Store: st,
		Run:   st.Run,
		Close: func() {
			if err := st.Stop(context.Background()); err != nil {
				log.WithError(err).Warn("stop mongo store")
			}
		},
	}, nil
}
