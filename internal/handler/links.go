package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/scissor/internal/service"
)

func (h *Handler) EditPage(rw http.ResponseWriter, r *http.Request) {
	link, err := h.links.Link(r.Context(), chi.URLParam(r, "code"), currentUser(r).ID)
	if err != nil {
		h.fail(rw, r, err, "/dashboard")
		return
	}

	h.render(rw, r, http.StatusOK, "edit", pageData{Title: "Edit", Link: h.view(link)})
}

func (h *Handler) EditHandler(rw http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	back := "/" + code + "/edit"

	if err := r.ParseForm(); err != nil {
		setFlash(rw, flashDanger, "Please check your input.")
		http.Redirect(rw, r, back, http.StatusSeeOther)
		return
	}

	_, err := h.links.UpdatePath(r.Context(), code, currentUser(r).ID, r.PostForm.Get("custom_path"))
	if err != nil {
		if errors.Is(err, service.ErrPathTaken) {
			setFlash(rw, flashDanger, "That custom path already exists. Please try another.")
			http.Redirect(rw, r, back, http.StatusSeeOther)
			return
		}
		h.fail(rw, r, err, back)
		return
	}

	setFlash(rw, flashSuccess, "Link updated.")
	http.Redirect(rw, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) DeleteHandler(rw http.ResponseWriter, r *http.Request) {
	if err := h.links.Delete(r.Context(), chi.URLParam(r, "code"), currentUser(r).ID); err != nil {
		h.fail(rw, r, err, "/dashboard")
		return
	}

	setFlash(rw, flashSuccess, "Link deleted.")
	http.Redirect(rw, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) QRCodeHandler(rw http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	png, err := h.links.QRCode(r.Context(), code, currentUser(r).ID)
	if err != nil {
		h.fail(rw, r, err, "/dashboard")
		return
	}

	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Content-Length", strconv.Itoa(len(png)))
	rw.Header().Set("Cache-Control", "private, max-age=30")
	rw.WriteHeader(http.StatusOK)
	if _, err := rw.Write(png); err != nil {
		h.logger.Debug("Failed to write qr code", zap.String("code", code), zap.Error(err))
	}
}
