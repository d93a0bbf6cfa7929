package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/brizuela-go/takeorderhd/internal/backend"
	"github.com/brizuela-go/takeorderhd/internal/config"
	"github.com/brizuela-go/takeorderhd/internal/logging"
	"github.com/brizuela-go/takeorderhd/internal/seed"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	file := flag.String("file", "", "JSON catalog to load (defaults to the built-in demo catalog)")
	driver := flag.String("driver", cfg.StoreDriver, "store driver: postgres or mongo")
	flag.Parse()
	cfg.StoreDriver = *driver

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.StoreDriver == config.DriverMemory {
		log.Fatal("nothing to seed: the memory store does not outlive this process")
	}

	catalog := seed.Demo()
	if *file != "" {
		c, err := seed.LoadFile(*file)
		if err != nil {
			log.WithError(err).Fatal("load catalog")
		}
		catalog = c
	}

	if err := run(context.Background(), cfg, catalog, log); err != nil {
		log.WithError(err).Fatal("seed catalog")
	}
}

// run opens the configured store and seeds it. The store is closed before
// returning so callers may exit on error.
func run(ctx context.Context, cfg *config.Config, catalog store.Catalog, log logrus.FieldLogger) error {
	b, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer b.Close()

	if err := b.Store.Seed(ctx, catalog); err != nil {
		return err
	}
	logSummary(log, cfg.StoreDriver, catalog)
	return nil
}

func logSummary(log logrus.FieldLogger, driver string, c store.Catalog) {
	log.WithFields(logrus.Fields{
		"store":      driver,
		"tables":     len(c.Tables),
		"waiters":    len(c.Waiters),
		"categories": len(c.Categories),
		"items":      len(c.Items),
	}).Info("catalog seeded")
}
