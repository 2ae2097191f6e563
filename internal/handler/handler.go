package handler

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/service"
)

const defaultRateLimit = 10

type Handler struct {
	links     *service.LinkService
	accounts  *service.AccountService
	session   *middleware.Session
	logger    *zap.Logger
	rateLimit int
}

func NewHandler(links *service.LinkService, accounts *service.AccountService, session *middleware.Session, logger *zap.Logger, rateLimit int) *Handler {
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	return &Handler{
		links:     links,
		accounts:  accounts,
		session:   session,
		logger:    logger,
		rateLimit: rateLimit,
	}
}

type linkView struct {
	ShortLink  string
	ShortURL   string
	LongLink   string
	CustomPath string
	Clicks     int64
	CreatedAt  time.Time
	HasQRCode  bool
}

type pageData struct {
	Title    string
	User     middleware.SessionUser
	SignedIn bool
	Flash    *flash
	Links    []linkView
	Link     linkView
	Form     map[string]string
	Status   int
	Message  string
}

func (h *Handler) view(link *models.Link) linkView {
	return linkView{
		ShortLink:  link.ShortLink,
		ShortURL:   h.links.ShortURL(link),
		LongLink:   link.LongLink,
		CustomPath: link.CustomPath,
		Clicks:     link.Clicks,
		CreatedAt:  link.CreatedAt,
		HasQRCode:  link.QRCodePath != "",
	}
}

// render writes page with the session user and any pending flash message.
func (h *Handler) render(rw http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.User, data.SignedIn = middleware.UserFromContext(r.Context())
	if f, ok := popFlash(rw, r); ok {
		data.Flash = &f
	}

	var buf bytes.Buffer
	if err := renderPage(&buf, page, data); err != nil {
		h.logger.Error("Failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	buf.WriteTo(rw)
}

func (h *Handler) renderError(rw http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(rw, r, status, "error", pageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

func (h *Handler) NotFoundPage(rw http.ResponseWriter, r *http.Request) {
	h.renderError(rw, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

// fail answers a failed request. Missing and foreign links get their own
// pages, known domain errors become a flash message on redirectTo and
// anything else is a 500.
func (h *Handler) fail(rw http.ResponseWriter, r *http.Request, err error, redirectTo string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.NotFoundPage(rw, r)
		return
	case errors.Is(err, service.ErrUnauthorized):
		h.renderError(rw, r, http.StatusForbidden, "You do not have access to this link.")
		return
	}

	if msg, ok := flashText(err); ok {
		setFlash(rw, flashDanger, msg)
		http.Redirect(rw, r, redirectTo, http.StatusSeeOther)
		return
	}

	h.logger.Error("Request failed",
		zap.String("method", r.Method),
		zap.String("uri", r.RequestURI),
		zap.Error(err))
	h.renderError(rw, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

func flashText(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrDuplicateLink):
		return "This link has already been shortened.", true
	case errors.Is(err, service.ErrPathTaken):
		return "That custom path is taken. Please try another.", true
	case errors.Is(err, service.ErrUnreachableTarget):
		return "That link could not be reached. Please check it and try again.", true
	case errors.Is(err, service.ErrCollisionRetryExhausted):
		return "Could not create a short link right now. Please try again.", true
	case errors.Is(err, service.ErrUsernameTaken):
		return "This username already exists.", true
	case errors.Is(err, service.ErrEmailTaken):
		return "This email is already registered.", true
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Please provide valid credentials.", true
	case errors.Is(err, service.ErrAccountNotFound):
		return "Account not found. Please sign up to continue.", true
	case errors.Is(err, service.ErrValidation):
		return validationText(err), true
	}
	return "", false
}

func validationText(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	if msg == "" {
		return "Please check your input."
	}
	runes := []rune(msg)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes) + "."
}

func currentUser(r *http.Request) middleware.SessionUser {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}
