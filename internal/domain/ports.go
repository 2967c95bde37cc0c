package domain

import (
	"context"
	"errors"
	"net/url"
)

var (
	ErrNotFound    = errors.New("search: not found")
	ErrUnavailable = errors.New("search: source unavailable")
)

// SearchGateway is the outbound port to the backend search endpoints,
// one per source kind plus the unified cross-collection endpoint.
// Params are the flat key/value request parameters produced by the
// source query builder; page is 1-based.
type SearchGateway interface {
	Search(ctx context.Context, kind SourceKind, params url.Values, page int) (ResultPage, error)
}

// Geolocator is the platform's one-shot "get current position" call.
type Geolocator interface {
	Locate(ctx context.Context) (Coords, error)
}

// Cache stores JSON-encoded values with a TTL in seconds.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
