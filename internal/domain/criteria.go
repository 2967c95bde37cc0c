package domain

// Sort orders for result streams.
type Sort string

const (
	SortRating        Sort = "rating"
	SortName          Sort = "name"
	SortDistance      Sort = "distance"
	SortNewest        Sort = "newest"
	SortPriceAsc      Sort = "price_asc"
	SortPriceDesc     Sort = "price_desc"
	SortPopularNearby Sort = "popular_nearby"
)

// NeedsLocation reports whether the sort is meaningless without a
// resolved coordinate (device position or a geocoded city point).
func (s Sort) NeedsLocation() bool {
	return s == SortDistance || s == SortPopularNearby
}

func ValidSort(s Sort) bool {
	switch s {
	case SortRating, SortName, SortDistance, SortNewest, SortPriceAsc, SortPriceDesc, SortPopularNearby:
		return true
	}
	return false
}

// Tab selects the active result stream.
type Tab string

const (
	TabAll      Tab = "all"
	TabBusiness Tab = "business"
	TabSale     Tab = "sale"
	TabPromo    Tab = "promo"
)

func ValidTab(t Tab) bool {
	return t == TabAll || t == TabBusiness || t == TabSale || t == TabPromo
}

// SourceKind identifies one backend collection, or the unified
// cross-collection endpoint.
type SourceKind string

const (
	SourceBusiness SourceKind = "business"
	SourceSale     SourceKind = "sale"
	SourcePromo    SourceKind = "promo"
	SourceUnified  SourceKind = "unified"
)

// Source returns the single source a tab reads from.
func (t Tab) Source() SourceKind {
	switch t {
	case TabBusiness:
		return SourceBusiness
	case TabSale:
		return SourceSale
	case TabPromo:
		return SourcePromo
	}
	return SourceUnified
}

// Criteria is the canonical, in-memory representation of all active
// filters plus the chosen sort and tab. Zero values mean "absent";
// pointer fields distinguish absent from an explicit zero.
type Criteria struct {
	FreeText string

	CategoryName       string
	SaleCategoryID     string
	SaleSubcategoryIDs []string
	Services           []string // business-only

	City    string
	CityLat *float64
	CityLng *float64

	PriceMin       *float64
	PriceMax       *float64
	IncludeNoPrice bool

	MaxDistanceKm   float64 // 0 = unbounded
	MinRating       int     // 1..5, 0 = absent
	OpenNow         bool
	AddedWithinDays int     // 0 = absent

	Sort Sort
	Tab  Tab
}

// Normalized returns a copy with sort/tab defaulted to rating/all when
// empty or out of range.
func (c Criteria) Normalized() Criteria {
	if !ValidSort(c.Sort) {
		c.Sort = SortRating
	}
	if !ValidTab(c.Tab) {
		c.Tab = TabAll
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		c.MinRating = 0
	}
	if c.MaxDistanceKm < 0 {
		c.MaxDistanceKm = 0
	}
	return c
}

// HasPriceBound reports whether either price bound is set.
func (c Criteria) HasPriceBound() bool {
	return c.PriceMin != nil || c.PriceMax != nil
}

// HasCategoryFilter reports whether any category-level filter is
// active. Promos carry no category, so an active category filter
// excludes the promo source entirely.
func (c Criteria) HasCategoryFilter() bool {
	return c.CategoryName != "" || c.SaleCategoryID != "" || len(c.SaleSubcategoryIDs) > 0
}

// DistanceMode reports whether the criteria require a resolved
// coordinate: a distance-dependent sort or a bounded radius.
func (c Criteria) DistanceMode() bool {
	return c.Sort.NeedsLocation() || c.MaxDistanceKm > 0
}
