package domain

import (
	"encoding/json"
	"time"
)

// Item is one result record. Display fields vary per source; the full
// backend payload rides along in RawJSON for fields we do not model.
type Item struct {
	ID         string
	Kind       SourceKind
	Name       *string
	Category   *string
	City       *string
	Price      *float64 // absent for businesses and many promos
	Rating     *float64
	DistanceKm *float64 // present only on distance-sorted responses
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RawJSON    json.RawMessage
}

// ResultPage is one page of one source's results as returned by the
// backend search endpoints.
type ResultPage struct {
	Kind       SourceKind
	Page       int // 1-based
	PageSize   int
	TotalPages int // >= Page once known; 0 = unknown
	Items      []Item
}
