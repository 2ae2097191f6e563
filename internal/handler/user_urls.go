package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/middleware"
	"github.com/mmeshcher/scissor/internal/models"
)

func (h *Handler) GetUserURLsHandler(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	links, err := h.links.UserLinks(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to get user links",
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(links) == 0 {
		rw.WriteHeader(http.StatusNoContent)
		return
	}

	out := make([]models.UserURL, 0, len(links))
	for i := range links {
		out = append(out, models.UserURL{
			ShortURL:    h.links.ShortURL(&links[i]),
			OriginalURL: links[i].LongLink,
			Clicks:      links[i].Clicks,
			CreatedAt:   links[i].CreatedAt,
		})
	}

	writeJSON(rw, http.StatusOK, out, h.logger)
}
