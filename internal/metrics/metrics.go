// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sites",
			Help: "Number of websites currently loaded in the resolver cache.",
		})

	SiteLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_load_total",
			Help: "Cumulative number of websites loaded by host.",
		})

	SiteLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_load_errors_total",
			Help: "Cumulative number of website load errors.",
		})

	SiteEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_evict_total",
			Help: "Cumulative number of websites evicted from the resolver cache.",
		})

	DomainSagaTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_saga_total",
			Help: "Domain saga steps finished, labelled by step and outcome.",
		},
		[]string{"step", "outcome"})

	ProviderRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "provider_retries_total",
			Help: "Cumulative number of retried DNS-provider calls.",
		})

	ReconcilerSweepTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_sweep_total",
			Help: "Cumulative number of stale domains re-driven by the reconciler.",
		})

	PageResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_resolve_total",
			Help: "Page resolutions by result (hit or miss).",
		},
		[]string{"result"})
)

func init() {
	prometheus.MustRegister(
		ActiveSites,
		SiteLoadTotal,
		SiteLoadErrorsTotal,
		SiteEvictTotal,
		DomainSagaTotal,
		ProviderRetriesTotal,
		ReconcilerSweepTotal,
		PageResolveTotal,
	)
}
