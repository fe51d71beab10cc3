package handler

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sentio-ai/sentio/backend/internal/handler/capture"
	therapyHandler "github.com/sentio-ai/sentio/backend/internal/handler/therapy"
	middlewarePkg "github.com/sentio-ai/sentio/backend/internal/middleware"
)

// NewRouter wires HTTP routes to the orchestration core.
func NewRouter(processor therapyHandler.TurnProcessor, dataDir, audioDir, captureDir string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	turnHandler := therapyHandler.New(processor, dataDir, audioDir, logger.With("component", "handler"))
	captureHandler := capture.New(captureDir, logger.With("component", "capture"))

	r.Route("/api", func(api chi.Router) {
		turnHandler.RegisterRoutes(api)
		captureHandler.RegisterRoutes(api)
	})

	return r
}
