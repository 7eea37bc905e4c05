// internal/api/domains.go
//
// Domain handlers.  Request and Release return immediately; the status
// field is how callers watch the saga make progress.

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/forge/internal/domain"
	"github.com/yanizio/forge/internal/fault"
)

type domainBody struct {
	Name string `json:"name"`
}

type domainView struct {
	ID        uint64 `json:"id"`
	WebsiteID string `json:"website_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	LastError string `json:"last_error,omitempty"`
}

func viewDomain(rec *domain.Record) domainView {
	v := domainView{
		ID:        rec.ID,
		WebsiteID: rec.WebsiteID,
		Name:      rec.Name,
		Status:    string(rec.Status),
	}
	if rec.LastError.Valid {
		v.LastError = rec.LastError.String
	}
	return v
}

// ownedDomain resolves a domain id and checks the owning website belongs
// to the caller.
func (h *Handler) ownedDomain(r *http.Request) (*domain.Record, error) {
	const op = "api.domain"

	id, err := strconv.ParseUint(chi.URLParam(r, "domainID"), 10, 64)
	if err != nil {
		return nil, fault.New(fault.InvalidInput, op, "malformed domain id")
	}
	rec, err := h.Domains.Status(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedWebsite(r, rec.WebsiteID); err != nil {
		return nil, fault.New(fault.NotFound, op, "domain %d not found", id)
	}
	return rec, nil
}

func (h *Handler) requestDomain(w http.ResponseWriter, r *http.Request) {
	site, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body domainBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.Domains.Request(r.Context(), site.ID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, viewDomain(rec))
}

func (h *Handler) listDomains(w http.ResponseWriter, r *http.Request) {
	site, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := h.Domains.ListForWebsite(r.Context(), site.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]domainView, 0, len(rows))
	for i := range rows {
		views = append(views, viewDomain(&rows[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getDomain(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedDomain(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDomain(rec))
}

func (h *Handler) releaseDomain(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedDomain(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Domains.Release(r.Context(), rec.ID); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.Invalidate(rec.Name)
	w.WriteHeader(http.StatusAccepted)
}
