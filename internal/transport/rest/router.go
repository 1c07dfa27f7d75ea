package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/expense-assistant/internal/chat"
	"github.com/frahmantamala/expense-assistant/internal/transport/middleware"
	"github.com/frahmantamala/expense-assistant/internal/transport/swagger"
)

type RouterDeps struct {
	Health      *HealthHandler
	Chat        *chat.Handler
	OpenAPI     []byte
	Metrics     http.Handler
	MetricsPath string
	// Auth is nil when gateway authentication is disabled.
	Auth func(http.Handler) http.Handler
	// Validate is nil when OpenAPI request validation is disabled.
	Validate func(http.Handler) http.Handler
	Logger   *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, deps RouterDeps) {
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	if deps.OpenAPI != nil {
		spec := deps.OpenAPI
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(spec)
		})
		router.Handle("/swagger/*", swagger.Handler())
	}
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, deps.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if deps.Health != nil {
			r.Get("/health", deps.Health.healthCheckHandler)
			r.Get("/ping", deps.Health.pingHandler)
		}

		if deps.Chat == nil {
			return
		}
		r.Group(func(pr chi.Router) {
			if deps.Auth != nil {
				pr.Use(deps.Auth)
			}
			if deps.Validate != nil {
				pr.Use(deps.Validate)
			}
			pr.Route("/chat", func(cr chi.Router) {
				cr.Post("/messages", deps.Chat.PostMessage)
				cr.Post("/actions", deps.Chat.PostAction)
			})
		})
	})
}
