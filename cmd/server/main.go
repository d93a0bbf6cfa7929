package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/brizuela-go/takeorderhd/internal/backend"
	"github.com/brizuela-go/takeorderhd/internal/config"
	"github.com/brizuela-go/takeorderhd/internal/events"
	"github.com/brizuela-go/takeorderhd/internal/logging"
	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/router"
	"github.com/brizuela-go/takeorderhd/internal/service"
	"github.com/brizuela-go/takeorderhd/internal/store"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/brizuela-go/takeorderhd/internal/ws"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if b.Run != nil {
		go func() {
			if err := b.Run(ctx); err != nil {
				log.WithError(err).Error("change feed stopped")
			}
		}()
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = np
		log.WithField("url", cfg.NATSURL).Info("publishing order events to NATS")
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	mirrors := mirror.NewSet(mirror.SourcesFromFeeds(store.NewFeeds(b.Store, log)), log)
	mirrors.Broadcast(hub.BroadcastSnapshot)
	if err := mirrors.Start(ctx); err != nil {
		return err
	}
	defer mirrors.Close()

	svc := service.NewOrderService(b.Store, mirrors.Items.Snapshot, publisher, loc, log)
	sessions := terminal.NewManager(svc, terminal.MirrorCatalog{Set: mirrors}, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, mirrors, sessions, hub, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":     cfg.Port,
			"store":    cfg.StoreDriver,
			"timezone": loc.String(),
		}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
