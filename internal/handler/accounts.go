package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/service"
)

func (h *Handler) SignupPage(rw http.ResponseWriter, r *http.Request) {
	h.render(rw, r, http.StatusOK, "signup", pageData{Title: "Sign up"})
}

func (h *Handler) SignupHandler(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(rw, flashDanger, "Please check your input.")
		http.Redirect(rw, r, "/signup", http.StatusSeeOther)
		return
	}

	_, err := h.accounts.Register(r.Context(), models.RegisterRequest{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		h.fail(rw, r, err, "/signup")
		return
	}

	setFlash(rw, flashSuccess, "You are now signed up.")
	http.Redirect(rw, r, "/login", http.StatusSeeOther)
}

func (h *Handler) LoginPage(rw http.ResponseWriter, r *http.Request) {
	h.render(rw, r, http.StatusOK, "login", pageData{Title: "Log in"})
}

func (h *Handler) LoginHandler(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(rw, flashDanger, "Please provide valid credentials.")
		http.Redirect(rw, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		redirectTo := "/login"
		if errors.Is(err, service.ErrAccountNotFound) {
			redirectTo = "/signup"
		}
		h.fail(rw, r, err, redirectTo)
		return
	}

	if err := h.session.SignIn(rw, middleware.SessionUser{ID: user.ID, Username: user.Username}); err != nil {
		h.logger.Error("Failed to issue session", zap.Int64("user_id", user.ID), zap.Error(err))
		h.renderError(rw, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	setFlash(rw, flashSuccess, "You are now logged in.")
	http.Redirect(rw, r, "/", http.StatusSeeOther)
}

func (h *Handler) LogoutHandler(rw http.ResponseWriter, r *http.Request) {
	h.session.SignOut(rw)
	setFlash(rw, flashInfo, "You have been logged out.")
	http.Redirect(rw, r, "/", http.StatusSeeOther)
}
