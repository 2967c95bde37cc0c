package app

import (
	"context"
	"encoding/json"
	"time"

	"citysearch/internal/domain"
)

// QueryService is the stateless one-page search path behind the
// gateway API: build, read-through cache, fetch, policy-filter. It
// shares the request-key cache entries with the engine and the warmer,
// so pages warmed ahead of time are served without a backend call.
type QueryService struct {
	gateway  domain.SearchGateway
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(gw domain.SearchGateway, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{gateway: gw, cache: cache, cacheTTL: ttl}
}

// Search fetches one page for the criteria's active tab. A geocoded
// city point in the criteria stands in for a resolved location;
// without one, distance-dependent modes degrade inside the builder.
func (s *QueryService) Search(ctx context.Context, c domain.Criteria, page int) (domain.ResultPage, error) {
	c = c.Normalized()
	if page < 1 {
		page = 1
	}
	kind := c.Tab.Source()

	params, include := BuildParams(kind, c, cityLocation(c))
	if !include {
		// Excluded by policy; an empty exhausted page, no network call.
		return domain.ResultPage{Kind: kind, Page: page, TotalPages: page}, nil
	}

	key := cacheKey(RequestKey(kind, params, page))
	var out domain.ResultPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return s.filtered(out, c), nil
	}

	res, err := s.gateway.Search(ctx, kind, params, page)
	if err != nil {
		return domain.ResultPage{}, err
	}

	// Size guard before caching, as with any shared JSON cache entry.
	if b, _ := json.Marshal(res); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, res, int(s.cacheTTL.Seconds()))
	}
	return s.filtered(res, c), nil
}

// filtered applies the client-side price policy to per-source pages;
// unified pages pass through in backend order. The cache always holds
// the unfiltered page so differing noPrice settings share one entry.
func (s *QueryService) filtered(res domain.ResultPage, c domain.Criteria) domain.ResultPage {
	if res.Kind == domain.SourceUnified {
		return res
	}
	res.Items = ApplyPricePolicy(res.Items, c)
	return res
}

func cityLocation(c domain.Criteria) domain.LocationState {
	if c.CityLat == nil || c.CityLng == nil {
		return domain.LocationState{Status: domain.LocationIdle}
	}
	return domain.LocationState{
		Status:     domain.LocationResolved,
		Coord:      &domain.Coords{Lat: *c.CityLat, Lng: *c.CityLng},
		ResolvedAt: time.Now().UTC(),
	}
}
