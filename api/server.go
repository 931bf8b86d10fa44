/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. CORS:         Cross-origin requests for frontend
  5. Authenticate: Bearer JWT on everything under /api
  6. RequireAdmin: admin claim on /api/admin/*

ROUTE GROUPS:
  /healthz              Liveness, no auth
  /api/me/*             Caller's cookies and favorites
  /api/likes/*          Like toggles and status
  /api/favorites        Favorite toggles
  /api/topics/*         Topics and replies
  /api/admin/*          Account and counter maintenance

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token verification
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Auth           *Authenticator
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Auth.Authenticate)

		r.Route("/me", func(r chi.Router) {
			r.Get("/cookies", h.ListCookies)
			r.Post("/cookies", h.SpendCookie)
			r.Get("/cookies/balance", h.GetCookieBalance)
			r.Post("/cookies/{name}/activate", h.ActivateCookie)
			r.Get("/favorites", h.ListFavorites)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Post("/", h.ToggleLike)
			r.Get("/{targetID}", h.GetLikeStatus)
		})

		r.Post("/favorites", h.ToggleFavorite)

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", h.ListTopics)
			r.Post("/", h.CreateTopic)
			r.Get("/{seq}", h.GetTopic)
			r.Get("/{seq}/replies", h.ListReplies)
			r.Post("/{seq}/replies", h.CreateReply)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/users", h.CreateUser)
			r.Post("/users/{id}/grant", h.GrantCredits)
			r.Post("/likes/{targetID}/reconcile", h.ReconcileLikes)
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios/load", h.LoadScenario)
		})
	})

	return r
}
