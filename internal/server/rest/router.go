package rest

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires all identity endpoints onto a chi router.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/verify", h.HandleVerifyCode)
		r.Post("/password/forgot", h.HandleForgotPassword)
		r.Post("/password/reset", h.HandleResetPassword)
		r.Post("/google", h.HandleGoogleLogin)
	})

	r.Route("/api/profile", func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Put("/", h.HandleUpdateProfile)
	})

	return r
}
