package app

import (
	"net/url"
	"strconv"

	"citysearch/internal/domain"
)

// Query-string keys. These are a compatibility contract with shareable
// links; renaming any of them breaks previously bookmarked searches.
const (
	keyFreeText       = "q"
	keyCategory       = "category"
	keySaleCategory   = "saleCategory"
	keySaleSubcat     = "saleSubcategory"
	keyService        = "service"
	keyCity           = "city"
	keyCityLat        = "cityLat"
	keyCityLng        = "cityLng"
	keyPriceMin       = "priceMin"
	keyPriceMax       = "priceMax"
	keyIncludeNoPrice = "noPrice"
	keyMaxDistance    = "maxDistance"
	keyMinRating      = "minRating"
	keyOpenNow        = "openNow"
	keyAddedDays      = "addedDays"
	keySort           = "sort"
	keyTab            = "tab"
)

// Encode flattens criteria into query-string parameters. Geocoded city
// coordinates are persisted only while a distance-dependent mode is
// active (distance/popular_nearby sort or a bounded radius); outside
// those modes they are internal state and deliberately dropped.
func Encode(c domain.Criteria) url.Values {
	c = c.Normalized()
	v := url.Values{}

	setStr := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	setStr(keyFreeText, c.FreeText)
	setStr(keyCategory, c.CategoryName)
	setStr(keySaleCategory, c.SaleCategoryID)
	for _, id := range c.SaleSubcategoryIDs {
		if id != "" {
			v.Add(keySaleSubcat, id)
		}
	}
	for _, s := range c.Services {
		if s != "" {
			v.Add(keyService, s)
		}
	}
	setStr(keyCity, c.City)

	if c.DistanceMode() {
		if c.CityLat != nil {
			v.Set(keyCityLat, formatFloat(*c.CityLat))
		}
		if c.CityLng != nil {
			v.Set(keyCityLng, formatFloat(*c.CityLng))
		}
	}

	if c.PriceMin != nil {
		v.Set(keyPriceMin, formatFloat(*c.PriceMin))
	}
	if c.PriceMax != nil {
		v.Set(keyPriceMax, formatFloat(*c.PriceMax))
	}
	if c.IncludeNoPrice {
		v.Set(keyIncludeNoPrice, "1")
	}
	if c.MaxDistanceKm > 0 {
		v.Set(keyMaxDistance, formatFloat(c.MaxDistanceKm))
	}
	if c.MinRating > 0 {
		v.Set(keyMinRating, strconv.Itoa(c.MinRating))
	}
	if c.OpenNow {
		v.Set(keyOpenNow, "1")
	}
	if c.AddedWithinDays > 0 {
		v.Set(keyAddedDays, strconv.Itoa(c.AddedWithinDays))
	}
	v.Set(keySort, string(c.Sort))
	v.Set(keyTab, string(c.Tab))
	return v
}

// Decode rebuilds criteria from query-string parameters. It never
// fails: malformed numeric fields are treated as absent, unknown keys
// are ignored, and sort/tab fall back to their defaults.
func Decode(v url.Values) domain.Criteria {
	c := domain.Criteria{
		FreeText:       v.Get(keyFreeText),
		CategoryName:   v.Get(keyCategory),
		SaleCategoryID: v.Get(keySaleCategory),
		City:           v.Get(keyCity),
		IncludeNoPrice: parseBool(v.Get(keyIncludeNoPrice)),
		OpenNow:        parseBool(v.Get(keyOpenNow)),
		Sort:           domain.Sort(v.Get(keySort)),
		Tab:            domain.Tab(v.Get(keyTab)),
	}
	c.SaleSubcategoryIDs = nonEmpty(v[keySaleSubcat])
	c.Services = nonEmpty(v[keyService])

	c.CityLat = parseFloatPtr(v.Get(keyCityLat))
	c.CityLng = parseFloatPtr(v.Get(keyCityLng))
	c.PriceMin = parseFloatPtr(v.Get(keyPriceMin))
	c.PriceMax = parseFloatPtr(v.Get(keyPriceMax))

	if f := parseFloatPtr(v.Get(keyMaxDistance)); f != nil && *f > 0 {
		c.MaxDistanceKm = *f
	}
	if n, err := strconv.Atoi(v.Get(keyMinRating)); err == nil && n >= 1 && n <= 5 {
		c.MinRating = n
	}
	if n, err := strconv.Atoi(v.Get(keyAddedDays)); err == nil && n > 0 {
		c.AddedWithinDays = n
	}
	return c.Normalized()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseFloatPtr(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseBool(s string) bool {
	return s == "1" || s == "true"
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
