package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SearchBase  string
	SearchKey   string
	SearchRPS   int
	GeoBase     string
	GeoKey      string
	CacheTTL    time.Duration
	WarmWorkers int
	WarmSets    string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		SearchBase:  env("SEARCH_BASE_URL", "http://localhost:9000"),
		SearchKey:   env("SEARCH_API_KEY", ""),
		SearchRPS:   atoi("SEARCH_RPS", 10),
		GeoBase:     env("GEO_BASE_URL", "http://localhost:9001"),
		GeoKey:      env("GEO_API_KEY", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		WarmWorkers: atoi("WARM_WORKERS", 4),
		WarmSets:    env("WARM_SETS", ""),
	}
	if c.SearchKey == "" {
		log.Warn().Msg("SEARCH_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
