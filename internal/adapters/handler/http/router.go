package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type RouterDeps struct {
	Auth       *AuthHandler
	OAuth      *OAuthHandler
	Users      *UserHandler
	Pages      *PageHandler
	Gatekeeper *Gatekeeper

	// AllowedOrigins enables credentialed CORS for the listed origins.
	AllowedOrigins []string
}

func NewHandler(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler)
	}
	r.Use(deps.Gatekeeper.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, http.StatusOK, "ok")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/logout", deps.Auth.Logout)
			r.Get("/me", deps.Auth.Me)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/google/callback", deps.Auth.GoogleCallback)

			if deps.OAuth != nil {
				r.Get("/oauth/{provider}", deps.OAuth.Begin)
				r.Get("/oauth/{provider}/callback", deps.OAuth.Callback)
			}
		})

		r.Get("/profile", deps.Users.GetProfile)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusNotFound, "Not found")
		})
	})

	r.Get("/", deps.Pages.Dashboard)
	r.Get("/login", deps.Pages.Login)
	r.Get("/register", deps.Pages.Register)
	r.Handle("/static/*", deps.Pages.Static())

	return r
}
