package app

import (
	"net/url"
	"testing"

	"citysearch/internal/domain"
)

func TestRequestKey_Stable(t *testing.T) {
	a := url.Values{"q": {"coffee"}, "city": {"Haifa"}, "sort": {"rating"}}
	b := url.Values{"sort": {"rating"}, "city": {"Haifa"}, "q": {"coffee"}}

	if RequestKey(domain.SourceSale, a, 1) != RequestKey(domain.SourceSale, b, 1) {
		t.Fatal("key must not depend on parameter insertion order")
	}
	if RequestKey(domain.SourceSale, a, 1) == RequestKey(domain.SourceSale, a, 2) {
		t.Fatal("key must distinguish pages")
	}
	if RequestKey(domain.SourceSale, a, 1) == RequestKey(domain.SourceBusiness, a, 1) {
		t.Fatal("key must distinguish sources")
	}
}

func TestRequestGuard_DedupAndStaleness(t *testing.T) {
	g := newRequestGuard()

	if !g.Begin(domain.SourceSale, "k1") {
		t.Fatal("first begin must proceed")
	}
	if g.Begin(domain.SourceSale, "k1") {
		t.Fatal("identical re-issue must be suppressed")
	}
	if !g.Begin(domain.SourceSale, "k2") {
		t.Fatal("a new key must proceed")
	}

	// k1 is superseded by k2.
	if g.Accept(domain.SourceSale, "k1") {
		t.Fatal("stale response must be rejected")
	}
	if !g.Accept(domain.SourceSale, "k2") {
		t.Fatal("current response must be accepted")
	}

	// Sources are independent.
	if !g.Begin(domain.SourceBusiness, "k2") {
		t.Fatal("another source must not share keys")
	}
}

func TestRequestGuard_InvalidateForcesRefetch(t *testing.T) {
	g := newRequestGuard()
	g.Begin(domain.SourceUnified, "k1")

	g.Invalidate(domain.SourceUnified)
	if g.Accept(domain.SourceUnified, "k1") {
		t.Fatal("responses for invalidated keys must be dropped")
	}
	if !g.Begin(domain.SourceUnified, "k1") {
		t.Fatal("after invalidation the same parameters must fetch again")
	}

	g.Begin(domain.SourceSale, "s1")
	g.InvalidateAll()
	if !g.Begin(domain.SourceSale, "s1") || !g.Begin(domain.SourceUnified, "k1") {
		t.Fatal("invalidate-all must clear every source")
	}
}
