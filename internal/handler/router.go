package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devblog-app/devblog/pkg/httpserver"
	"github.com/devblog-app/devblog/pkg/requestid"
)

// Config carries the router-level settings.
type Config struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Router assembles the full API surface with its middleware chain.
func Router(
	cfg Config,
	log *slog.Logger,
	authHandler *AuthHandler,
	postHandler *PostHandler,
	probes ...func(context.Context) error,
) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(Logging(log))
	r.Use(Recover(log))
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/healthz", httpserver.HealthCheckHandler(probes...))

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/posts", postHandler.Routes())
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondMessage(w, http.StatusNotFound, "Not found")
	})

	return r
}
