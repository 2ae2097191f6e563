package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "flash"

const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashInfo    = "info"
)

// flash is a one-shot message shown on the next rendered page.
type flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

func setFlash(rw http.ResponseWriter, category, message string) {
	data, err := json.Marshal(flash{Category: category, Message: message})
	if err != nil {
		return
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads the pending message and clears it.
func popFlash(rw http.ResponseWriter, r *http.Request) (flash, bool) {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return flash{}, false
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return flash{}, false
	}

	var f flash
	if err := json.Unmarshal(data, &f); err != nil || f.Message == "" {
		return flash{}, false
	}
	return f, true
}
