// cmd/api/main.go
//
// Forge – control-plane entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (system-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load config and resolve `vault:` references (DB password, DNS token).
//
//  4. Open the control-plane DB with ping retries.
//
//  5. Wire services: page directory → domain lifecycle → website registry
//     → resolver cache → asset store.
//
//  6. Start the reconciler sweep and the HTTP server; drain in-flight
//     domain sagas on shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yanizio/forge/internal/api"
	"github.com/yanizio/forge/internal/assets"
	"github.com/yanizio/forge/internal/config"
	"github.com/yanizio/forge/internal/customization"
	"github.com/yanizio/forge/internal/database"
	"github.com/yanizio/forge/internal/dns"
	"github.com/yanizio/forge/internal/domain"
	"github.com/yanizio/forge/internal/logger"
	"github.com/yanizio/forge/internal/middleware"
	"github.com/yanizio/forge/internal/page"
	"github.com/yanizio/forge/internal/resolver"
	"github.com/yanizio/forge/internal/server"
	"github.com/yanizio/forge/internal/vault"
	"github.com/yanizio/forge/internal/website"
)

const serverEnvPath = "/usr/local/etc/forge/global.env"

// loadEnv prefers the system-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	log, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		fmt.Fprintf(os.Stderr, "start logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("load config", "err", err)
	}

	//
	// ── 1.  Secret resolution ───────────────────────────────────────────
	//
	dbPassword := cfg.Database.Password
	dnsToken := cfg.DNS.Token
	if needsVault(dbPassword, dnsToken) {
		vc, err := vault.New(ctx, log)
		if err != nil {
			log.Fatalw("vault client", "err", err)
		}
		if dbPassword, err = vc.Resolve(ctx, dbPassword); err != nil {
			log.Fatalw("resolve db password", "err", err)
		}
		if dnsToken, err = vc.Resolve(ctx, dnsToken); err != nil {
			log.Fatalw("resolve dns token", "err", err)
		}
	}

	//
	// ── 2.  Control-plane DB ────────────────────────────────────────────
	//
	dsn := fmt.Sprintf(cfg.Database.DSN, dbPassword)
	db, err := database.Open(ctx, dsn)
	if err != nil {
		log.Fatalw("connect db", "err", err)
	}
	defer db.Close()
	log.Infow("control-plane db online")

	//
	// ── 3.  Services ────────────────────────────────────────────────────
	//
	provider := dns.NewCloudflare(cfg.DNS.APIURL, cfg.DNS.ZoneID, dnsToken, cfg.DNS.Fallback)

	pages := page.NewDirectory(db, log)
	lifecycle := domain.NewLifecycle(db, provider, domain.Config{
		MaxAttempts:    cfg.Saga.MaxAttempts,
		InitialBackoff: cfg.Saga.InitialBackoff,
		MaxBackoff:     cfg.Saga.MaxBackoff,
	}, log)
	themes := customization.NewService(db, log)
	registry := website.NewRegistry(db, pages, lifecycle, themes, log)

	cache := resolver.New(db, cfg.DNS.Main, resolver.Config{
		IdleTTL:    cfg.Resolver.IdleTTL,
		MaxEntries: cfg.Resolver.MaxEntries,
	}, log)
	defer cache.Close()

	var store *assets.Store
	if cfg.Assets.Bucket != "" {
		if store, err = assets.New(ctx, cfg.Assets); err != nil {
			log.Fatalw("asset store", "err", err)
		}
	}

	reconciler := domain.NewReconciler(lifecycle,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, log)
	go reconciler.Run(ctx)

	//
	// ── 4.  HTTP ────────────────────────────────────────────────────────
	//
	handler := &api.Handler{
		Websites: registry,
		Pages:    pages,
		Domains:  lifecycle,
		Themes:   themes,
		Assets:   store,
		Cache:    cache,
		Log:      log,
	}

	var root http.Handler = handler.Router()
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(cache, root)
	}

	srv := server.New(cfg.HTTP.ListenAddr, root)
	go func() {
		log.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http shutdown", "err", err)
	}

	// Let in-flight domain sagas reach a durable state; anything left
	// behind is the reconciler's job on next boot.
	lifecycle.Wait()
	log.Infow("bye")
}

func needsVault(values ...string) bool {
	for _, v := range values {
		if len(v) > 6 && v[:6] == "vault:" {
			return true
		}
	}
	return false
}
