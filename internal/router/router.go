package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studyflow-backend/internal/handlers"
	"studyflow-backend/internal/middleware"
	"studyflow-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	plannerHandler *handlers.PlannerHandler,
	wsHub *websocket.Hub,
	rateLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter.Middleware)

		// ──── Planner token (public) ────
		r.Post("/planner", plannerHandler.CreatePlanner)

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(chimiddleware.Timeout(15 * time.Second))
			r.Get("/", plannerHandler.List)
			r.Post("/", plannerHandler.Create)
			r.Get("/export", plannerHandler.ExportAll)
			r.Post("/import", plannerHandler.Import)
			r.Get("/{id}/export", plannerHandler.ExportOne)
			r.Delete("/{id}", plannerHandler.Delete)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
