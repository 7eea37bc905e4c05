// internal/api/pages.go
//
// Page handlers.  Page content is an opaque JSON document; the directory
// validates it against the page's variant, not here.

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/page"
)

type createPageBody struct {
	Title      string          `json:"title"`
	Path       string          `json:"path"`
	Type       string          `json:"type"`
	IsHome     bool            `json:"is_home"`
	Components json.RawMessage `json:"components"`
}

type updatePageBody struct {
	Title      *string         `json:"title"`
	Path       *string         `json:"path"`
	Components json.RawMessage `json:"components"`
}

// ownedPage resolves a page id and checks the owning website belongs to
// the caller.
func (h *Handler) ownedPage(r *http.Request) (*page.Record, error) {
	const op = "api.page"

	id, err := strconv.ParseUint(chi.URLParam(r, "pageID"), 10, 64)
	if err != nil {
		return nil, fault.New(fault.InvalidInput, op, "malformed page id")
	}
	rec, err := h.Pages.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if _, err := h.ownedWebsite(r, rec.WebsiteID); err != nil {
		return nil, fault.New(fault.NotFound, op, "page %d not found", id)
	}
	return rec, nil
}

func (h *Handler) createPage(w http.ResponseWriter, r *http.Request) {
	site, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var body createPageBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.Pages.Create(r.Context(), site.ID,
		body.Title, body.Path, body.Type, body.Components, body.IsHome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) listPages(w http.ResponseWriter, r *http.Request) {
	site, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := h.Pages.ListForWebsite(r.Context(), site.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) getPage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedPage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// updatePage applies any combination of a title rename, a move, and a
// content replacement.  Each piece goes through its own guarded
// transaction in the directory.
func (h *Handler) updatePage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedPage(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body updatePageBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if body.Title != nil {
		if err := h.Pages.Rename(r.Context(), rec.ID, *body.Title); err != nil {
			writeError(w, err)
			return
		}
	}
	if body.Path != nil {
		if err := h.Pages.Move(r.Context(), rec.ID, *body.Path); err != nil {
			writeError(w, err)
			return
		}
	}
	if len(body.Components) > 0 {
		if err := h.Pages.UpdateContent(r.Context(), rec.ID, body.Components); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePage(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ownedPage(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Pages.Delete(r.Context(), rec.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadAsset stores a raw image body and returns its public URL.
func (h *Handler) uploadAsset(w http.ResponseWriter, r *http.Request) {
	const op = "api.asset"

	site, err := h.ownedWebsite(r, chi.URLParam(r, "websiteID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Assets == nil {
		writeError(w, fault.New(fault.Internal, op, "asset storage not configured"))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeError(w, fault.New(fault.InvalidInput, op, "unreadable request body"))
		return
	}

	url, err := h.Assets.Put(r.Context(), site.ID, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
