package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RedirectHandler sends the visitor to the target of a short code. Responses
// are never cached by clients so each visit reaches the counter.
func (h *Handler) RedirectHandler(rw http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	target, err := h.links.ResolveAndCount(r.Context(), code)
	if err != nil {
		h.fail(rw, r, err, "/")
		return
	}

	rw.Header().Set("Cache-Control", "no-store")
	http.Redirect(rw, r, target, http.StatusFound)
}
