package handler

import (
	"errors"
	"net/http"

	"github.com/mmeshcher/scissor/internal/models"
	"github.com/mmeshcher/scissor/internal/service"
)

func (h *Handler) IndexHandler(rw http.ResponseWriter, r *http.Request) {
	h.render(rw, r, http.StatusOK, "index", pageData{Title: "Shorten"})
}

func (h *Handler) ShortenHandler(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(rw, flashDanger, "Please check your input.")
		http.Redirect(rw, r, "/", http.StatusSeeOther)
		return
	}

	user := currentUser(r)
	_, err := h.links.Submit(r.Context(), models.SubmitRequest{
		LongURL:    r.PostForm.Get("long_link"),
		CustomPath: r.PostForm.Get("custom_path"),
		OwnerID:    user.ID,
	})
	if err != nil {
		redirectTo := "/"
		if errors.Is(err, service.ErrDuplicateLink) {
			redirectTo = "/dashboard"
		}
		h.fail(rw, r, err, redirectTo)
		return
	}

	setFlash(rw, flashSuccess, "Link shortened.")
	http.Redirect(rw, r, "/dashboard", http.StatusSeeOther)
}
