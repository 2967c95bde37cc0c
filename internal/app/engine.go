package app

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"citysearch/internal/domain"
)

// Engine is the aggregation orchestrator. It owns the active criteria
// and one paginator per source, decides when the location resolver
// must settle first, gates every fetch through the request guard and
// exposes the merged visible item stream.
//
// All state mutation is serialized behind one mutex: there is exactly
// one logical writer. Fetches run on goroutines and deliver their
// responses through the staleness-checked apply path; a superseded
// response is discarded on arrival, which stands in for cancellation.
type Engine struct {
	gateway  domain.SearchGateway
	resolver *LocationResolver
	cache    domain.Cache // optional; nil disables read-through
	cacheTTL time.Duration
	debounce *Debouncer
	logger   zerolog.Logger

	mu         sync.Mutex
	criteria   domain.Criteria
	paginators map[domain.SourceKind]*Paginator
	guard      *requestGuard

	// filter generation bookkeeping: a paginator's accumulated state is
	// reusable on tab switch-back only while it was filled under the
	// current criteria generation.
	gen  int
	gens map[domain.SourceKind]int

	wg sync.WaitGroup
}

// NewEngine builds an engine starting on the unified tab with rating
// sort. cache may be nil.
func NewEngine(gw domain.SearchGateway, resolver *LocationResolver, cache domain.Cache, cacheTTL time.Duration) *Engine {
	return &Engine{
		gateway:  gw,
		resolver: resolver,
		cache:    cache,
		cacheTTL: cacheTTL,
		debounce: NewDebouncer(300 * time.Millisecond),
		logger:   log.Logger,
		criteria: domain.Criteria{Sort: domain.SortRating, Tab: domain.TabAll},
		paginators: map[domain.SourceKind]*Paginator{
			domain.SourceBusiness: NewPaginator(domain.SourceBusiness),
			domain.SourceSale:     NewPaginator(domain.SourceSale),
			domain.SourcePromo:    NewPaginator(domain.SourcePromo),
			domain.SourceUnified:  NewPaginator(domain.SourceUnified),
		},
		guard: newRequestGuard(),
		gens:  map[domain.SourceKind]int{},
	}
}

// Criteria returns a copy of the active criteria.
func (e *Engine) Criteria() domain.Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// SetTab switches the active source. The now-active source starts a
// fresh page-1 fetch unless its accumulated state is still valid for
// the current filters, which makes switching back to a recently viewed
// tab free. Inactive sources are never disturbed.
func (e *Engine) SetTab(ctx context.Context, tab domain.Tab) {
	if !domain.ValidTab(tab) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.criteria.Tab == tab {
		return
	}
	e.criteria.Tab = tab
	e.guard.InvalidateAll()

	// A paginator still Loading here had its in-flight response
	// invalidated when the tab switched away; its fetch will be dropped
	// on arrival and nothing else clears the Loading flag, so it must
	// restart rather than be reused.
	p := e.activeLocked()
	if e.gens[p.Kind()] == e.gen && p.CurrentPage() > 0 && !p.IsLoading() {
		return // cheap switch-back: state already current
	}
	e.resetAndFetchLocked(ctx)
}

// ApplyFilters replaces the filter set and starts a fresh fetch on the
// active source. Empty Sort/Tab inherit the current ones. Re-applying
// criteria whose canonical form is unchanged while a fetch is in
// flight or already answered is a no-op: the request is treated as
// satisfied.
func (e *Engine) ApplyFilters(ctx context.Context, c domain.Criteria) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.Sort == "" {
		c.Sort = e.criteria.Sort
	}
	if c.Tab == "" {
		c.Tab = e.criteria.Tab
	}
	c = c.Normalized()

	if criteriaEqual(c, e.criteria) && e.activeLocked().CurrentPage() > 0 {
		return
	}
	e.criteria = c
	e.gen++
	e.guard.InvalidateAll()

	if c.DistanceMode() && !cityLocation(c).Usable() && !e.resolver.Settled() {
		e.refreshThenFetch(ctx)
		return
	}
	e.resetAndFetchLocked(ctx)
}

// ChangeSort switches the sort order. A distance-dependent sort with
// no settled location first awaits the resolver; on failure the fetch
// proceeds and the builder degrades the sort to rating.
func (e *Engine) ChangeSort(ctx context.Context, sort domain.Sort) {
	if !domain.ValidSort(sort) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.criteria.Sort == sort {
		return
	}
	e.criteria.Sort = sort
	e.gen++
	e.guard.InvalidateAll()

	if sort.NeedsLocation() && !cityLocation(e.criteria).Usable() && !e.resolver.Settled() {
		e.refreshThenFetch(ctx)
		return
	}
	e.resetAndFetchLocked(ctx)
}

// TypeFreeText coalesces keystrokes: the filter change fires once
// after a quiet period, with the latest text.
func (e *Engine) TypeFreeText(ctx context.Context, text string) {
	e.debounce.Trigger(text, func(latest string) {
		c := e.Criteria()
		c.FreeText = latest
		e.ApplyFilters(ctx, c)
	})
}

// LoadMore advances the active source by one page. It is the target of
// the viewport-intersection trigger and a no-op while loading or
// exhausted.
func (e *Engine) LoadMore(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(ctx, e.activeLocked())
}

// AutoFill keeps advancing the active source until at least minVisible
// items are accumulated, the source is exhausted, or the per-reset
// auto-advance budget runs out. It blocks until the loads settle; the
// scroll container calls it after a load when the rendered content is
// still shorter than one viewport.
func (e *Engine) AutoFill(ctx context.Context, minVisible int) {
	for {
		e.Wait()
		e.mu.Lock()
		p := e.activeLocked()
		if len(e.visibleLocked()) >= minVisible || !p.HasMore() {
			e.mu.Unlock()
			return
		}
		page, ok := p.AutoAdvance()
		if !ok {
			e.mu.Unlock()
			return
		}
		e.dispatchLocked(ctx, p, page)
		e.mu.Unlock()
	}
}

// VisibleItems returns the active source's accumulated items after the
// client-side price policy. The unified tab is returned in backend
// order, already merged and ranked server-side.
func (e *Engine) VisibleItems() []domain.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibleLocked()
}

// HasMore reports whether the active source can load another page.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked().HasMore()
}

// IsLoading reports whether the active source has a fetch in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked().IsLoading()
}

// Wait blocks until all dispatched fetches have settled. Tests and the
// cache warmer use it as the quiescence point.
func (e *Engine) Wait() { e.wg.Wait() }

// Close stops the debounce timer.
func (e *Engine) Close() { e.debounce.Stop() }

// ---- internals (all *Locked methods require e.mu held) ----

func (e *Engine) activeLocked() *Paginator {
	return e.paginators[e.criteria.Tab.Source()]
}

// locationLocked picks the coordinate the builder should see: a
// user-chosen city's geocoded point wins over the device position.
func (e *Engine) locationLocked() domain.LocationState {
	if cl := cityLocation(e.criteria); cl.Usable() {
		return cl
	}
	return e.resolver.Current()
}

func (e *Engine) visibleLocked() []domain.Item {
	p := e.activeLocked()
	if p.Kind() == domain.SourceUnified {
		return p.Items()
	}
	return ApplyPricePolicy(p.Items(), e.criteria)
}

func (e *Engine) resetAndFetchLocked(ctx context.Context) {
	p := e.activeLocked()
	p.Reset()
	e.gens[p.Kind()] = e.gen
	if page, ok := p.Advance(); ok {
		e.dispatchLocked(ctx, p, page)
	}
}

func (e *Engine) advanceLocked(ctx context.Context, p *Paginator) bool {
	page, ok := p.Advance()
	if !ok {
		return false
	}
	e.dispatchLocked(ctx, p, page)
	return true
}

// refreshThenFetch awaits the location resolver off the caller's
// goroutine, then starts the page-1 fetch with whatever settled.
func (e *Engine) refreshThenFetch(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.resolver.Refresh(ctx)
		e.mu.Lock()
		defer e.mu.Unlock()
		e.resetAndFetchLocked(ctx)
	}()
}

// dispatchLocked issues the fetch for one advanced page. The paginator
// has already entered Loading; a refused (duplicate) dispatch rolls it
// back, a policy-excluded source settles as exhausted without any
// network call.
func (e *Engine) dispatchLocked(ctx context.Context, p *Paginator, page int) {
	kind := p.Kind()
	params, include := BuildParams(kind, e.criteria, e.locationLocked())
	if !include {
		p.Apply(domain.ResultPage{Kind: kind, Page: page})
		return
	}
	key := RequestKey(kind, params, page)
	if !e.guard.Begin(kind, key) {
		p.Fail()
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		res, err := e.fetch(ctx, kind, key, params, page)

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.guard.Accept(kind, key) {
			return // superseded; a newer request owns this source now
		}
		if err != nil {
			// Source-scoped failure: keep the last good state so a
			// later LoadMore or filter change can retry. Other
			// sources are untouched.
			p.Fail()
			e.logger.Warn().Err(err).Str("source", string(kind)).Int("page", page).
				Msg("source fetch failed")
			return
		}
		p.Apply(res)
	}()
}

// fetch is the network path with optional read-through caching keyed
// by the request key, shared with the stateless query service and the
// cache warmer.
func (e *Engine) fetch(ctx context.Context, kind domain.SourceKind, key string, params url.Values, page int) (domain.ResultPage, error) {
	ckey := cacheKey(key)
	if e.cache != nil {
		var cached domain.ResultPage
		if ok, _ := e.cache.Get(ctx, ckey, &cached); ok {
			return cached, nil
		}
	}
	res, err := e.gateway.Search(ctx, kind, params, page)
	if err != nil {
		return domain.ResultPage{}, err
	}
	if e.cache != nil {
		_ = e.cache.Set(ctx, ckey, res, int(e.cacheTTL.Seconds()))
	}
	return res, nil
}

func cacheKey(requestKey string) string { return "search:" + requestKey }

// criteriaEqual compares the canonical encoded form, the same identity
// the request keys are built from.
func criteriaEqual(a, b domain.Criteria) bool {
	return Encode(a).Encode() == Encode(b).Encode()
}
