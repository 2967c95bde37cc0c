package app

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"

	"citysearch/internal/domain"
)

// ObserveDedup records every guard decision (event: issued, deduped or
// stale_drop). The composition root points it at the metrics recorder;
// the default is a no-op.
var ObserveDedup = func(source, event string) {}

// RequestKey returns a stable identity for one outgoing request:
// source kind + canonicalized parameters + page. url.Values.Encode
// sorts keys, so logically identical requests hash identically.
// Used only for de-duplication and staleness checks, never persisted.
func RequestKey(kind domain.SourceKind, params url.Values, page int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%d", kind, params.Encode(), page)))
	return hex.EncodeToString(sum[:])
}

// requestGuard suppresses duplicate fetches and drops superseded
// responses. Per source it remembers the last successfully started key
// (dedup) and the currently active key (staleness).
type requestGuard struct {
	mu     sync.Mutex
	last   map[domain.SourceKind]string
	active map[domain.SourceKind]string
}

func newRequestGuard() *requestGuard {
	return &requestGuard{
		last:   map[domain.SourceKind]string{},
		active: map[domain.SourceKind]string{},
	}
}

// Begin registers key as the source's active request. It returns false
// when the key equals the last started key, i.e. an identical fetch
// was already issued and re-issuing it would be redundant.
func (g *requestGuard) Begin(kind domain.SourceKind, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last[kind] == key {
		ObserveDedup(string(kind), "deduped")
		return false
	}
	g.last[kind] = key
	g.active[kind] = key
	ObserveDedup(string(kind), "issued")
	return true
}

// Accept reports whether a response for key is still current. A stale
// response (superseded by a newer key) must be discarded unapplied.
func (g *requestGuard) Accept(kind domain.SourceKind, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[kind] != key {
		ObserveDedup(string(kind), "stale_drop")
		return false
	}
	return true
}

// Invalidate forgets the source's keys so the next fetch proceeds even
// if its parameters coincide with an earlier request, and any response
// still in flight for the old key is dropped on arrival.
func (g *requestGuard) Invalidate(kind domain.SourceKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, kind)
	delete(g.active, kind)
}

// InvalidateAll clears every source; called on tab, filter and sort
// changes.
func (g *requestGuard) InvalidateAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = map[domain.SourceKind]string{}
	g.active = map[domain.SourceKind]string{}
}
