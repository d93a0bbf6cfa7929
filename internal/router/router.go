package router

import (
	"net/http"

	"github.com/brizuela-go/takeorderhd/internal/config"
	"github.com/brizuela-go/takeorderhd/internal/handler"
	mw "github.com/brizuela-go/takeorderhd/internal/middleware"
	"github.com/brizuela-go/takeorderhd/internal/mirror"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/brizuela-go/takeorderhd/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, mirrors *mirror.Set, sessions *terminal.Manager, hub *ws.Hub, log logrus.FieldLogger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Mirror snapshots over WebSocket
	r.Get("/ws/{collection}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, mirrors, w, r)
	})

	catalogHandler := handler.NewCatalogHandler(mirrors)
	catalogHandler.RegisterRoutes(r)

	sessionHandler := handler.NewSessionHandler(sessions, log)
	r.Route("/sessions", sessionHandler.RegisterRoutes)

	log.Debug("router initialized")
	return r
}
