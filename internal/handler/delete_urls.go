package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
)

// DeleteUserURLsHandler removes the listed codes owned by the caller. Codes
// that are unknown or belong to someone else are skipped.
func (h *Handler) DeleteUserURLsHandler(rw http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(rw, "Content-Type must be application/json", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var deleteReq models.DeleteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&deleteReq); err != nil {
		h.logger.Info("Failed to decode delete request", zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if len(deleteReq) == 0 {
		http.Error(rw, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.logger.Info("Delete request received",
		zap.Int64("user_id", user.ID),
		zap.Int("count", len(deleteReq)))

	for _, code := range deleteReq {
		if err := h.links.Delete(ctx, code, user.ID); err != nil {
			h.logger.Warn("Skipping link",
				zap.String("code", code),
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		}
	}

	rw.WriteHeader(http.StatusAccepted)
}
