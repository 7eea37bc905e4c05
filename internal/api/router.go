// internal/api/router.go
//
// HTTP surface of the control plane.
//
// Management routes live under /api and require the caller identity
// header; /resolve is the public serving-path lookup and stays open.
// /metrics and /healthz are for operators.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/forge/internal/assets"
	"github.com/yanizio/forge/internal/customization"
	"github.com/yanizio/forge/internal/domain"
	"github.com/yanizio/forge/internal/middleware"
	"github.com/yanizio/forge/internal/page"
	"github.com/yanizio/forge/internal/resolver"
	"github.com/yanizio/forge/internal/website"
)

// Handler carries the services the routes dispatch into.
type Handler struct {
	Websites *website.Registry
	Pages    *page.Directory
	Domains  *domain.Lifecycle
	Themes   *customization.Service
	Assets   *assets.Store
	Cache    *resolver.Cache
	Log      *zap.SugaredLogger
}

// Router assembles the chi tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Security)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/resolve", h.resolveHost)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Identity)

		api.Route("/websites", func(ws chi.Router) {
			ws.Post("/", h.createWebsite)
			ws.Get("/", h.listWebsites)

			ws.Route("/{websiteID}", func(one chi.Router) {
				one.Get("/", h.getWebsite)
				one.Patch("/", h.renameWebsite)
				one.Delete("/", h.deleteWebsite)

				one.Post("/domains", h.requestDomain)
				one.Get("/domains", h.listDomains)

				one.Post("/pages", h.createPage)
				one.Get("/pages", h.listPages)

				one.Get("/customization", h.getCustomization)
				one.Put("/customization", h.putCustomization)
				one.Delete("/customization", h.resetCustomization)

				one.Post("/assets", h.uploadAsset)
			})
		})

		api.Route("/domains/{domainID}", func(one chi.Router) {
			one.Get("/", h.getDomain)
			one.Delete("/", h.releaseDomain)
		})

		api.Route("/pages/{pageID}", func(one chi.Router) {
			one.Get("/", h.getPage)
			one.Patch("/", h.updatePage)
			one.Delete("/", h.deletePage)
		})
	})

	return r
}
