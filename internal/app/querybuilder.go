package app

import (
	"net/url"
	"strconv"

	"citysearch/internal/domain"
)

// BuildParams translates canonical criteria into the request parameters
// of one backend source. The bool result is false when the source is
// excluded outright by policy (promos under a category filter) and no
// network call should be made.
//
// Distance-dependent parameters (lat/lng/maxDistance) and the
// distance/popular_nearby sorts are emitted only with a usable
// coordinate; without one the parameters are omitted and the effective
// sort degrades to rating.
func BuildParams(kind domain.SourceKind, c domain.Criteria, loc domain.LocationState) (url.Values, bool) {
	c = c.Normalized()

	// Promos have no category; a category filter excludes the source.
	if kind == domain.SourcePromo && c.HasCategoryFilter() {
		return nil, false
	}

	v := url.Values{}
	if c.FreeText != "" {
		v.Set("q", c.FreeText)
	}
	if c.City != "" {
		v.Set("city", c.City)
	}

	sort := c.Sort
	withCoord := loc.Usable()
	if c.Sort.NeedsLocation() && !withCoord {
		sort = domain.SortRating
	}

	switch kind {
	case domain.SourceBusiness:
		// Businesses carry no price; price bounds never apply here.
		if c.CategoryName != "" {
			v.Set("category", c.CategoryName)
		}
		for _, s := range c.Services {
			v.Add("service", s)
		}
		addCommon(v, c)

	case domain.SourceSale:
		if c.SaleCategoryID != "" {
			v.Set("categoryId", c.SaleCategoryID)
		}
		for _, id := range c.SaleSubcategoryIDs {
			v.Add("subcategoryId", id)
		}
		addPrice(v, c)
		addCommon(v, c)

	case domain.SourcePromo:
		// Free text and city only, always scoped to active promos.
		v.Set("status", "active")

	case domain.SourceUnified:
		// Union schema: the backend does the per-collection splitting.
		if c.CategoryName != "" {
			v.Set("category", c.CategoryName)
		}
		if c.SaleCategoryID != "" {
			v.Set("categoryId", c.SaleCategoryID)
		}
		for _, id := range c.SaleSubcategoryIDs {
			v.Add("subcategoryId", id)
		}
		for _, s := range c.Services {
			v.Add("service", s)
		}
		addPrice(v, c)
		if c.IncludeNoPrice {
			// The unified backend owns the merge, so the no-price rule
			// travels with the request instead of running client-side.
			v.Set("noPrice", "1")
		}
		addCommon(v, c)
	}

	if withCoord && c.DistanceMode() {
		v.Set("lat", formatFloat(loc.Coord.Lat))
		v.Set("lng", formatFloat(loc.Coord.Lng))
		if c.MaxDistanceKm > 0 {
			v.Set("maxDistance", formatFloat(c.MaxDistanceKm))
		}
	}
	v.Set("sort", string(sort))
	return v, true
}

func addPrice(v url.Values, c domain.Criteria) {
	if c.PriceMin != nil {
		v.Set("minPrice", formatFloat(*c.PriceMin))
	}
	if c.PriceMax != nil {
		v.Set("maxPrice", formatFloat(*c.PriceMax))
	}
}

func addCommon(v url.Values, c domain.Criteria) {
	if c.MinRating > 0 {
		v.Set("minRating", strconv.Itoa(c.MinRating))
	}
	if c.OpenNow {
		v.Set("openNow", "1")
	}
	if c.AddedWithinDays > 0 {
		v.Set("addedDays", strconv.Itoa(c.AddedWithinDays))
	}
}
