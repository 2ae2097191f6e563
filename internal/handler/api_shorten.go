package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/service"
)

func (h *Handler) APIShortenHandler(rw http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(rw, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	var req models.ShortenRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		http.Error(rw, "Invalid JSON", http.StatusBadRequest)
		return
	}

	link, err := h.links.Submit(r.Context(), models.SubmitRequest{
		LongURL:    req.URL,
		CustomPath: req.CustomPath,
		OwnerID:    user.ID,
	})
	if err != nil {
		h.apiError(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusCreated, models.ShortenResponse{Result: h.links.ShortURL(link)}, h.logger)
}

func (h *Handler) apiError(rw http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateLink), errors.Is(err, service.ErrPathTaken):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnreachableTarget):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrCollisionRetryExhausted):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("API request failed", zap.String("uri", r.RequestURI), zap.Error(err))
		http.Error(rw, http.StatusText(status), status)
		return
	}

	msg, _ := flashText(err)
	http.Error(rw, msg, status)
}

func writeJSON(rw http.ResponseWriter, status int, v any, logger *zap.Logger) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
