// internal/api/customization.go
//
// Theme handlers.  The body of a put is the whole theme, not a patch:
// omitted fields clear the stored value.  Writes invalidate every cached
// host of the website because the serve path carries the theme inside the
// resolved Site.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type customizationBody struct {
	PrimaryColor   *string `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
	LogoURL        *string `json:"logo_url"`
}

func (h *Handler) getCustomization(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}
	theme, err := h.Themes.Get(r.Context(), rec.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

func (h *Handler) putCustomization(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var body customizationBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	theme, err := h.Themes.Put(r.Context(), rec.ID, body.PrimaryColor, body.SecondaryColor, body.LogoURL)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateWebsite(rec.ID)
	writeJSON(w, http.StatusOK, theme)
}

func (h *Handler) resetCustomization(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Themes.Reset(r.Context(), rec.ID); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateWebsite(rec.ID)
	w.WriteHeader(http.StatusNoContent)
}
