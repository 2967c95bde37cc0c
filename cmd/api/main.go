package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"citysearch/internal/adapters/directory"
	"citysearch/internal/adapters/geoip"
	server "citysearch/internal/adapters/http_server"
	"citysearch/internal/adapters/observability"
	redisad "citysearch/internal/adapters/redis"
	"citysearch/internal/app"
	"citysearch/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)
	app.ObserveDedup = observability.ObserveDedup

	observability.Serve()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "citysearch")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	cancel()
	log.Info().Msg("redis connection ok")

	gateway, err := directory.New(cfg.SearchBase, cfg.SearchKey, cfg.SearchRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize directory client")
	}
	resolver := app.NewLocationResolver(geoip.New(cfg.GeoBase, cfg.GeoKey))
	q := app.NewQueryService(gateway, cache, cfg.CacheTTL)

	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Resolver: resolver})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
