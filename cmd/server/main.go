// Package main is the entry point for the driftline server: the admin API,
// the optional operator console, the scan scheduler and the folder executor,
// all in one process.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"

	"driftline/internal/api"
	"driftline/internal/app"
	"driftline/internal/config"
	internaldb "driftline/internal/db"
	"driftline/internal/middleware"
	"driftline/internal/ui"
	"driftline/internal/warehouse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Open the SQLite metastore with hardened connection settings.
	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  4-connection pool for concurrent reads (WAL, no txlock).
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer writeDB.Close()
	defer readDB.Close()

	// Migrations run on the write pool (DDL requires write access).
	if err := internaldb.RunMigrations(writeDB); err != nil {
		return fmt.Errorf("migrate metastore: %w", err)
	}

	// The warehouse being down must not keep the control plane from booting;
	// folder runs fail at the DDL step and retry on later scans.
	var warehouseDB *sql.DB
	if cfg.HasWarehouse() {
		db, err := warehouse.Open(cfg.WarehouseDSN)
		if err != nil {
			return fmt.Errorf("warehouse: %w", err)
		}
		defer db.Close()
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("warehouse unreachable at startup", "error", err)
		}
		pingCancel()
		warehouseDB = db
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:         cfg,
		WriteDB:     writeDB,
		ReadDB:      readDB,
		WarehouseDB: warehouseDB,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	defer a.Stop()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", cfg.Auth.APIKeyHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	// The API and the console share the authenticator; only the unauthorized
	// response differs (JSON envelope vs login redirect).
	var profiler api.Profiler
	if a.Profiler != nil {
		profiler = a.Profiler
	}
	apiHandler := api.NewHandler(
		a.Services.Dataset,
		a.Services.Ingest,
		a.Services.Run,
		a.Services.Watermark,
		a.Services.APIKey,
		a.Services.Audit,
		profiler,
		cfg.MaxFileSize,
		logger,
	)
	apiHandler.Mount(r, a.Auth.Middleware())

	if cfg.FeatureUI {
		uiHandler := ui.NewHandler(
			a.Services.Dataset,
			a.Services.Run,
			a.Services.Watermark,
			a.Services.Ingest,
			cfg.Auth,
			cfg.IsProduction(),
		)
		r.Route("/ui", func(r chi.Router) {
			ui.MountRoutes(r, uiHandler, a.Auth.MiddlewareWithFallback(ui.RedirectToLogin))
		})
		logger.Info("operator console enabled", "path", "/ui")
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
		// Validation report uploads can run hundreds of MiB.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	logger.Info("driftline listening", "addr", cfg.ListenAddr, "env", cfg.Env,
		"probe", scheme+"://"+displayHostForListenAddr(cfg.ListenAddr)+"/healthz")
	if useTLS {
		err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// displayHostForListenAddr rewrites a listen address into something a person
// can actually dial: bind-all and empty hosts become localhost.
func displayHostForListenAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch strings.TrimSpace(host) {
	case "", "0.0.0.0", "::":
		return "localhost:" + port
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + port
	}
	return host + ":" + port
}
