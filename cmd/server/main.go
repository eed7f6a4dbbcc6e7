package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"Threadmark/internal/api/handlers/live"
	"Threadmark/internal/api/middleware"
	"Threadmark/internal/api/routes"
	"Threadmark/internal/config"
	"Threadmark/internal/core/embeds"
	"Threadmark/internal/core/posts"
	"Threadmark/internal/core/render"
	"Threadmark/internal/core/sites"
	"Threadmark/internal/db/migrations"
)

func main() {
	cfg := config.ConfigFromEnv()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// app is the wired server: routes, the coordinator that must drain on
// shutdown, and the resources to release.
type app struct {
	handler     http.Handler
	site        *sites.Site
	coordinator *embeds.Coordinator
	hub         *live.Hub
	rateLimiter *middleware.RateLimiter
}

func (a *app) Close() {
	a.rateLimiter.Stop()
	// Let in-flight embed runs commit before the process exits
	a.coordinator.Wait()
	a.hub.Close()
}

// newApp wires the site, the embed pipeline and the HTTP routes. repo may be
// nil to run without the persistent cache tier.
func newApp(cfg config.Config, repo embeds.Repository, logger *slog.Logger) (*app, error) {
	siteRegistry, err := sites.Load(cfg.SitesFile, logger)
	if err != nil {
		return nil, err
	}
	site, err := siteRegistry.Lookup(cfg.Site)
	if err != nil {
		return nil, err
	}

	cache, err := embeds.NewCache(cfg.Embed.CacheSize, repo, logger)
	if err != nil {
		return nil, err
	}

	hub := live.NewHub(nil, logger)

	transport := embeds.NewTransport(
		&http.Client{Timeout: cfg.Embed.FetchTimeout * 2},
		cfg.Embed.HostRate,
		cfg.Embed.HostBurst,
		cfg.Embed.UserAgent,
	)
	embedders := embeds.NewRegistry(embeds.DefaultEmbedders(embeds.ProviderOptions{YouTubeAPIKey: cfg.Embed.YouTubeAPIKey})...)
	coordinator := embeds.NewCoordinator(
		embedders,
		cache,
		transport,
		embeds.WithEnabled(cfg.Embed.Enabled),
		embeds.WithTimeout(cfg.Embed.FetchTimeout),
		embeds.WithTitleLimit(cfg.Embed.TitleMaxGraphemes),
		embeds.WithBoards(site.Board),
		embeds.WithNotifier(hub),
		embeds.WithLogger(logger),
	)

	service := render.NewService(site, posts.NewMemoryStore(cfg.PostCapacity), coordinator, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)
		routes.RegisterPostRoutes(r, service)
	})
	routes.RegisterLiveRoutes(r, hub)
	routes.RegisterHealthRoutes(r, routes.HealthSources{
		Cache:     cache,
		Breakers:  coordinator.BreakerStats,
		Clients:   hub.Clients,
		Embedders: embedders,
		Site:      site.Name(),
	})

	return &app{
		handler:     r,
		site:        site,
		coordinator: coordinator,
		hub:         hub,
		rateLimiter: rateLimiter,
	}, nil
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The persistent cache tier is optional
	var repo embeds.Repository
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		repo = embeds.NewRepository(db)
		logger.Info("Connected to embed cache database")
	}

	a, err := newApp(cfg, repo, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Threadmark starting", "port", cfg.Port, "site", a.site.Name(), "embeds", cfg.Embed.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
