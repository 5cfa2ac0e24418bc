package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	requestTimeout = 60 * time.Second

	// Handlers stop their work at the budget; the route timeout leaves room
	// to write the response.
	extractBudget  = 90 * time.Second
	extractTimeout = extractBudget + 10*time.Second
	syncBudget     = 2 * time.Minute
	syncTimeout    = syncBudget + 10*time.Second
)

// NewRouter wires the handler's routes and the middleware stack
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// HTML pages
		r.Get("/", h.Index)
		r.Get("/rodadas", h.RoundPage)
		r.Post("/rodadas/{user}/{round}", h.SaveRoundForm)

		r.Get("/health", h.Health)

		r.Get("/api/users", h.ListUsers)
		r.Get("/api/rounds", h.ListRounds)
		r.Get("/api/rounds/{round}/fixtures", h.GetFixtures)

		r.Get("/api/users/{user}/rounds/{round}/guesses", h.GetGuesses)
		r.Put("/api/users/{user}/rounds/{round}/guesses", h.PutGuesses)
		r.Post("/api/users/{user}/rounds/{round}/parse", h.ParseGuesses)
		r.Get("/api/users/{user}/standings", h.GetUserStandings)

		r.Get("/api/standings/official", h.GetOfficialStandings)
		r.Get("/api/standings/compare", h.GetComparison)
	})

	// Photo extraction waits on the vision model
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(extractTimeout))
		r.Post("/api/users/{user}/rounds/{round}/extract", h.ExtractGuesses)
		r.Post("/rodadas/{user}/{round}/foto", h.ExtractRoundForm)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(syncTimeout))
		r.Post("/api/results/sync", h.SyncResults)
	})

	return r
}
