package main

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"citysearch/internal/adapters/directory"
	"citysearch/internal/adapters/geoip"
	"citysearch/internal/adapters/observability"
	redisad "citysearch/internal/adapters/redis"
	"citysearch/internal/app"
	"citysearch/internal/shared"
)

// The warmer drives one engine per configured filter set through every
// page of its active source, populating the shared redis cache the API
// serves from. WARM_SETS is a semicolon-separated list of query
// strings in the codec's shareable format, e.g.
// "tab=business&category=Cafes;tab=sale&saleCategory=A&priceMin=10".
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)
	app.ObserveDedup = observability.ObserveDedup

	sets := parseSets(cfg.WarmSets)
	if len(sets) == 0 {
		log.Warn().Msg("WARM_SETS is empty; nothing to warm")
		return
	}
	log.Info().Int("sets", len(sets)).Int("workers", cfg.WarmWorkers).Msg("warmer starting")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "citysearch")
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("redis ping failed")
	}
	cancel()

	gateway, err := directory.New(cfg.SearchBase, cfg.SearchKey, cfg.SearchRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize directory client")
	}
	resolver := app.NewLocationResolver(geoip.New(cfg.GeoBase, cfg.GeoKey))

	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup

	for _, raw := range sets {
		raw := raw

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func() {
			defer sem.Release(1)
			defer wg.Done()
			warmSet(ctx, gateway, resolver, cache, cfg, raw)
		}()
	}
	wg.Wait()
	log.Info().Msg("warmer done")
}

func parseSets(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func warmSet(ctx context.Context, gateway *directory.Client, resolver *app.LocationResolver, cache *redisad.Cache, cfg shared.Config, raw string) {
	params, err := url.ParseQuery(raw)
	if err != nil {
		log.Warn().Err(err).Str("set", raw).Msg("bad warm set, skipping")
		return
	}
	criteria := app.Decode(params)

	eng := app.NewEngine(gateway, resolver, cache, cfg.CacheTTL)
	defer eng.Close()

	start := time.Now()
	eng.ApplyFilters(ctx, criteria)
	eng.Wait()
	pages := 1
	for eng.HasMore() {
		if !eng.LoadMore(ctx) {
			break
		}
		eng.Wait()
		pages++
	}
	log.Info().
		Str("tab", string(criteria.Tab)).
		Str("set", raw).
		Int("pages", pages).
		Int("items", len(eng.VisibleItems())).
		Dur("took", time.Since(start)).
		Msg("warmed filter set")
}
