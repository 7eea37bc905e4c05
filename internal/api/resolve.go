// internal/api/resolve.go
//
// Public serving-path lookup: host + path → page document.  This is the
// endpoint the renderer (or an edge worker) calls per request, so it
// rides the resolver cache instead of hitting the website table.

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yanizio/forge/internal/customization"
	"github.com/yanizio/forge/internal/fault"
	"github.com/yanizio/forge/internal/routing"
)

// stripPort removes the :port suffix from a Host header value.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}

type resolveView struct {
	WebsiteID string               `json:"website_id"`
	Type      string               `json:"type"`
	Path      string               `json:"path"`
	Document  json.RawMessage      `json:"document"`
	Theme     customization.Record `json:"theme"`
}

func (h *Handler) resolveHost(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve"

	// Explicit ?host= wins; otherwise the Host header identifies the site
	// (the edge proxy forwards the original host).
	host := r.URL.Query().Get("host")
	if host == "" {
		host = stripPort(r.Host)
	}
	if host == "" {
		writeError(w, fault.New(fault.InvalidInput, op, "host required"))
		return
	}
	path := routing.NormalizePath(r.URL.Query().Get("path"))

	site, err := h.Cache.Get(r.Context(), host)
	if err != nil {
		writeError(w, err)
		return
	}

	// Empty path serves the home page.
	if path == "" {
		home, err := h.Pages.Home(r.Context(), site.Website.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		path = home.Path
	}

	pageType, doc, err := h.Pages.Resolve(r.Context(), site.Website.ID, path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveView{
		WebsiteID: site.Website.ID,
		Type:      pageType,
		Path:      path,
		Document:  doc,
		Theme:     site.Theme,
	})
}
