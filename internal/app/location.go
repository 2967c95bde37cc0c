package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"citysearch/internal/domain"
)

// LocationResolver wraps the platform geolocator with a cached
// last-known state. One instance is shared process-wide: written only
// here, read by query builders and the engine.
//
// Failure is non-fatal by contract; callers degrade distance-dependent
// sorts to rating and keep going.
type LocationResolver struct {
	geo domain.Geolocator

	mu    sync.Mutex
	state domain.LocationState

	group singleflight.Group
}

func NewLocationResolver(geo domain.Geolocator) *LocationResolver {
	return &LocationResolver{
		geo:   geo,
		state: domain.LocationState{Status: domain.LocationIdle},
	}
}

// Current returns the cached state without triggering a lookup.
func (r *LocationResolver) Current() domain.LocationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Refresh runs the position lookup and returns the settled state.
// Concurrent callers while a lookup is resolving share the one
// in-flight call; none of them start a second lookup.
func (r *LocationResolver) Refresh(ctx context.Context) domain.LocationState {
	r.mu.Lock()
	r.state.Status = domain.LocationResolving
	r.mu.Unlock()

	v, _, _ := r.group.Do("locate", func() (any, error) {
		coord, err := r.geo.Locate(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			// Keep the last-known coordinate if we ever had one.
			r.state.Status = domain.LocationFailed
			r.state.Err = err.Error()
			log.Warn().Err(err).Msg("location lookup failed")
		} else {
			c := coord
			r.state = domain.LocationState{
				Status:     domain.LocationResolved,
				Coord:      &c,
				ResolvedAt: time.Now().UTC(),
			}
			log.Debug().Float64("lat", c.Lat).Float64("lng", c.Lng).Msg("location resolved")
		}
		return r.state, nil
	})
	return v.(domain.LocationState)
}

// Settled reports whether a refresh has ever finished, successfully or
// not. While false, distance-dependent operations should refresh first.
func (r *LocationResolver) Settled() bool {
	s := r.Current().Status
	return s == domain.LocationResolved || s == domain.LocationFailed
}
