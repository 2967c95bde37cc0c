package app

import "citysearch/internal/domain"

// maxAutoAdvance bounds viewport auto-fill per filter generation so
// tiny item cards cannot chain page loads without end.
const maxAutoAdvance = 5

// Paginator owns one source's incremental fetch state. It is a pure
// state machine: the engine decides when to fetch and feeds responses
// back through Apply. Not safe for concurrent use; the engine
// serializes access.
type Paginator struct {
	kind domain.SourceKind

	page       int // page currently loaded or loading; 0 = nothing yet
	totalPages int // 0 = unknown
	loading    bool
	items      []domain.Item

	autoAdvances int
}

func NewPaginator(kind domain.SourceKind) *Paginator {
	return &Paginator{kind: kind}
}

func (p *Paginator) Kind() domain.SourceKind { return p.kind }
func (p *Paginator) CurrentPage() int        { return p.page }
func (p *Paginator) TotalPages() int         { return p.totalPages }
func (p *Paginator) IsLoading() bool         { return p.loading }

// HasMore reports whether another page is available. Before the first
// response everything is unknown, which counts as "more".
func (p *Paginator) HasMore() bool {
	if p.totalPages == 0 {
		return true
	}
	return p.page < p.totalPages
}

// Items returns the accumulated items in arrival order. Callers must
// not mutate the returned slice.
func (p *Paginator) Items() []domain.Item { return p.items }

// Reset returns to the empty state for a new filter generation.
func (p *Paginator) Reset() {
	p.page = 0
	p.totalPages = 0
	p.loading = false
	p.items = nil
	p.autoAdvances = 0
}

// Advance moves to the next page and enters Loading. It refuses while
// a load is in flight or the source is exhausted, so page N's response
// is always applied before page N+1 is requested.
func (p *Paginator) Advance() (page int, ok bool) {
	if p.loading || !p.HasMore() {
		return 0, false
	}
	p.page++
	p.loading = true
	return p.page, true
}

// AutoAdvance is Advance under the viewport auto-fill budget.
func (p *Paginator) AutoAdvance() (page int, ok bool) {
	if p.autoAdvances >= maxAutoAdvance {
		return 0, false
	}
	page, ok = p.Advance()
	if ok {
		p.autoAdvances++
	}
	return page, ok
}

// Apply merges a response for the page requested by the last Advance.
// An unexpectedly empty page is authoritative: totalPages is clamped to
// the previous page and the source is exhausted, overriding whatever
// total the server reported earlier.
func (p *Paginator) Apply(res domain.ResultPage) {
	p.loading = false

	if len(res.Items) == 0 {
		p.totalPages = p.page
		return
	}

	if p.page <= 1 {
		p.items = append([]domain.Item(nil), res.Items...)
	} else {
		p.items = append(p.items, res.Items...)
	}
	if res.TotalPages > 0 {
		p.totalPages = res.TotalPages
	} else {
		p.totalPages = 1
	}
	if p.totalPages < p.page {
		p.totalPages = p.page
	}
}

// Fail aborts the in-flight load, keeping the last good state. The
// page counter rolls back so a later Advance retries the same page;
// hasMore stays conservatively true.
func (p *Paginator) Fail() {
	if !p.loading {
		return
	}
	p.loading = false
	if p.page > 0 {
		p.page--
	}
}
