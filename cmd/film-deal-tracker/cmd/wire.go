package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/film-deal-tracker/internal/api/handlers"
	"github.com/donaldgifford/film-deal-tracker/internal/api/middleware"
	"github.com/donaldgifford/film-deal-tracker/internal/config"
	"github.com/donaldgifford/film-deal-tracker/internal/dealcache"
	"github.com/donaldgifford/film-deal-tracker/internal/engine"
	"github.com/donaldgifford/film-deal-tracker/internal/notify"
	"github.com/donaldgifford/film-deal-tracker/internal/salecal"
	"github.com/donaldgifford/film-deal-tracker/internal/search"
	"github.com/donaldgifford/film-deal-tracker/internal/store"
	"github.com/donaldgifford/film-deal-tracker/pkg/extract"
	"github.com/donaldgifford/film-deal-tracker/pkg/resolve"
)

// app holds the wired components of a running server.
type app struct {
	store    store.Store
	calendar *salecal.Calendar
	resolver *resolve.Resolver
	engine   *engine.Engine
	echo     *echo.Echo
}

// openStore opens the configured store and applies migrations.
func openStore(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; state is lost on restart")
		s = store.NewMemoryStore()
	case config.DriverSQLite:
		s, err = store.NewSQLiteStore(ctx, cfg.Path)
	default:
		s, err = store.NewPostgresStore(ctx, cfg.DSN(), store.WithPoolSize(cfg.PoolSize))
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// buildNotifier fans out to every enabled sink, or logs deals when none is.
func buildNotifier(cfg *config.NotificationsConfig, log *slog.Logger) (notify.Notifier, error) {
	var sinks []notify.Sink
	if cfg.Discord.Enabled {
		sinks = append(sinks, notify.Sink{
			Name:     "discord",
			Notifier: notify.NewDiscordNotifier(cfg.Discord.WebhookURL),
		})
	}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("creating telegram notifier: %w", err)
		}
		sinks = append(sinks, notify.Sink{Name: "telegram", Notifier: tg})
	}
	if len(sinks) == 0 {
		log.Warn("no notification sinks enabled; deals will only be logged")
		sinks = append(sinks, notify.Sink{Name: "log", Notifier: notify.NewNoOpNotifier(log)})
	}
	return notify.NewFanout(sinks...), nil
}

// buildSearcher creates the rate-limited shopping search client.
func buildSearcher(cfg *config.SearchConfig) *search.Client {
	limiter := search.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, cfg.RateLimit.DailyLimit)

	opts := []search.Option{
		search.WithEngine(cfg.Engine),
		search.WithLocale(cfg.Country, cfg.Language),
		search.WithNumResults(cfg.NumResults),
		search.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		search.WithRateLimiter(limiter),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, search.WithBaseURL(cfg.BaseURL))
	}
	return search.NewClient(cfg.APIKey, opts...)
}

// buildApp wires every component from cfg around an already-open store.
func buildApp(cfg *config.Config, s store.Store, log *slog.Logger) (*app, error) {
	calOpts, err := cfg.Sales.CalendarOptions()
	if err != nil {
		return nil, err
	}
	calendar := salecal.New(calOpts...)

	resolverOpts := []resolve.Option{
		resolve.WithMappings(cfg.Aliases.Mappings),
		resolve.WithLogger(log),
	}
	if cfg.Aliases.DisableBuiltin {
		resolverOpts = append(resolverOpts, resolve.WithoutBuiltins())
	}
	resolver := resolve.NewResolver(resolverOpts...)

	extractor := extract.NewListingExtractor(
		buildSearcher(&cfg.Search),
		extract.WithTimeout(cfg.Search.Timeout),
		extract.WithMaxAliases(cfg.Search.MaxAliases),
		extract.WithLogger(log),
	)

	cache := dealcache.New(s,
		dealcache.WithTTLPolicy(calendar),
		dealcache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		dealcache.WithRefreshTimeout(cfg.Cache.RefreshTimeout),
		dealcache.WithLogger(log),
	)

	notifier, err := buildNotifier(&cfg.Notifications, log)
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine(s, resolver, extractor, cache, notifier,
		engine.WithLogger(log),
		engine.WithWorkers(cfg.Engine.Workers),
	)

	a := &app{
		store:    s,
		calendar: calendar,
		resolver: resolver,
		engine:   eng,
	}
	a.echo = a.newEcho(&cfg.Server, log)
	return a, nil
}

// newEcho builds the HTTP server: probes and metrics on Echo, the admin
// API on Huma.
func (a *app) newEcho(cfg *config.ServerConfig, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Tracing())
	e.Use(middleware.Metrics())

	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(a.store))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	humaCfg := huma.DefaultConfig("film-deal-tracker API", Version)
	humaCfg.Info.Description = "Admin API for deal checks, the deal cache, sale windows and subscribers."
	api := humaecho.New(e, humaCfg)

	handlers.RegisterCheckRoutes(api, handlers.NewCheckHandler(a.engine, a.engine))
	handlers.RegisterCacheRoutes(api, handlers.NewCacheHandler(a.engine))
	handlers.RegisterSalesRoutes(api, handlers.NewSalesHandler(a.calendar, time.Now))
	handlers.RegisterResolveRoutes(api, handlers.NewResolveHandler(a.resolver))
	handlers.RegisterSubscriberRoutes(api, handlers.NewSubscribersHandler(a.store))

	return e
}
