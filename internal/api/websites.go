// internal/api/websites.go
//
// Website management handlers.  Every route below /api carries a caller
// identity; ownership mismatches answer 404 so the API never confirms
// that a foreign id exists.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/forge/internal/auth"
	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/page"
	"github.com/yanizio/forge/internal/website"
)

type websiteBody struct {
	Name string `json:"name"`
}

// ownedWebsite loads a website and checks it belongs to the caller.
func (h *Handler) ownedWebsite(r *http.Request, websiteID string) (*website.Record, error) {
	const op = "api.website"

	userID, ok := auth.UserID(r.Context())
	if !ok {
		return nil, fault.New(fault.NotFound, op, "website %s not found", websiteID)
	}
	rec, err := h.Websites.Get(r.Context(), websiteID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, fault.New(fault.NotFound, op, "website %s not found", websiteID)
	}
	return rec, nil
}

func (h *Handler) createWebsite(w http.ResponseWriter, r *http.Request) {
	var body websiteBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserID(r.Context())

	rec, err := h.Websites.Create(r.Context(), userID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) listWebsites(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	rows, err := h.Websites.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// websiteDetail is the GET /api/websites/{id} view: the row plus its
// owned domains and pages.
type websiteDetail struct {
	website.Record
	Domains []domainView  `json:"domains"`
	Pages   []page.Record `json:"pages"`
}

func (h *Handler) getWebsite(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}

	domains, err := h.Domains.ListForWebsite(r.Context(), rec.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	pages, err := h.Pages.ListForWebsite(r.Context(), rec.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	detail := websiteDetail{Record: *rec, Domains: make([]domainView, 0, len(domains)), Pages: pages}
	for i := range domains {
		detail.Domains = append(detail.Domains, viewDomain(&domains[i]))
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) renameWebsite(w http.ResponseWriter, r *http.Request) {
	websiteID := chi.URLParam(r, "websiteID")

	var body websiteBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserID(r.Context())

	if err := h.Websites.Rename(r.Context(), websiteID, userID, body.Name); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateWebsite(websiteID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteWebsite(w http.ResponseWriter, r *http.Request) {
	websiteID := chi.URLParam(r, "websiteID")
	userID, _ := auth.UserID(r.Context())

	if err := h.Websites.Delete(r.Context(), websiteID, userID); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateWebsite(websiteID)

	// Asset cleanup is best-effort: the bucket prefix is unreachable once
	// the rows are gone, so a failure here only leaks storage.
	if h.Assets != nil {
		if err := h.Assets.RemoveForWebsite(r.Context(), websiteID); err != nil {
			h.Log.Warnw("asset cleanup failed", "website", websiteID, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
