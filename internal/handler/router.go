package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmeshcher/scissor/internal/middleware"
)

func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.session.Load)
	r.Use(middleware.Logger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.GzipMiddleware)

	r.Get("/", h.IndexHandler)
	r.With(h.session.RequireUser, h.limit()).Post("/", h.ShortenHandler)
	r.Get("/about", h.AboutHandler)
	r.Get("/ping", h.PingHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.session.RequireAnonymous)
		r.Get("/signup", h.SignupPage)
		r.With(h.limit()).Post("/signup", h.SignupHandler)
		r.Get("/login", h.LoginPage)
		r.With(h.limit()).Post("/login", h.LoginHandler)
	})
	r.Get("/logout", h.LogoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(h.session.RequireUser)
		r.Get("/dashboard", h.DashboardHandler)
		r.Get("/history", h.HistoryHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.With(h.limit()).Post("/shorten", h.APIShortenHandler)
		r.Get("/user/urls", h.GetUserURLsHandler)
		r.Delete("/user/urls", h.DeleteUserURLsHandler)
	})

	r.Route("/{code}", func(r chi.Router) {
		r.Get("/", h.RedirectHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.session.RequireUser)
			r.With(h.limit()).Get("/qr_code", h.QRCodeHandler)
			r.Get("/delete", h.DeleteHandler)
			r.Get("/edit", h.EditPage)
			r.With(h.limit()).Post("/edit", h.EditHandler)
			r.Get("/analytics", h.AnalyticsHandler)
		})
	})

	r.NotFound(h.NotFoundPage)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.renderError(w, r, http.StatusMethodNotAllowed, "This method is not allowed here.")
	})

	return r
}

// limit returns a fresh per-route limiter allowing rateLimit requests a minute.
func (h *Handler) limit() func(http.Handler) http.Handler {
	return middleware.RateLimit(h.rateLimit, time.Minute)
}
