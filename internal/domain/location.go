package domain

import "time"

type LocationStatus string

const (
	LocationIdle      LocationStatus = "idle"
	LocationResolving LocationStatus = "resolving"
	LocationResolved  LocationStatus = "resolved"
	LocationFailed    LocationStatus = "failed"
)

type Coords struct{ Lat, Lng float64 }

// LocationState is the process-wide geolocation snapshot. Written only
// by the location resolver; everyone else reads copies.
type LocationState struct {
	Status     LocationStatus
	Coord      *Coords
	Err        string // set when Status == LocationFailed
	ResolvedAt time.Time
}

// Usable reports whether a coordinate is available for
// distance-dependent sorts and filters.
func (s LocationState) Usable() bool {
	return s.Status == LocationResolved && s.Coord != nil
}
