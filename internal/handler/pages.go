package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AboutHandler(rw http.ResponseWriter, r *http.Request) {
	h.render(rw, r, http.StatusOK, "about", pageData{Title: "About"})
}

func (h *Handler) DashboardHandler(rw http.ResponseWriter, r *http.Request) {
	h.listPage(rw, r, "dashboard", "Dashboard")
}

func (h *Handler) HistoryHandler(rw http.ResponseWriter, r *http.Request) {
	h.listPage(rw, r, "history", "History")
}

func (h *Handler) listPage(rw http.ResponseWriter, r *http.Request, page, title string) {
	links, err := h.links.UserLinks(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(rw, r, err, "/")
		return
	}

	views := make([]linkView, 0, len(links))
	for i := range links {
		views = append(views, h.view(&links[i]))
	}

	h.render(rw, r, http.StatusOK, page, pageData{Title: title, Links: views})
}

func (h *Handler) AnalyticsHandler(rw http.ResponseWriter, r *http.Request) {
	link, err := h.links.Link(r.Context(), chi.URLParam(r, "code"), currentUser(r).ID)
	if err != nil {
		h.fail(rw, r, err, "/dashboard")
		return
	}

	h.render(rw, r, http.StatusOK, "analytics", pageData{Title: "Analytics", Link: h.view(link)})
}
