package app_test

import (
	"testing"

	"citysearch/internal/app"
	"citysearch/internal/domain"
)

func page(kind domain.SourceKind, n, total, count int) domain.ResultPage {
	items := make([]domain.Item, count)
	for i := range items {
		items[i] = domain.Item{ID: string(rune('a' + i)), Kind: kind}
	}
	return domain.ResultPage{Kind: kind, Page: n, TotalPages: total, Items: items}
}

func TestPaginator_Monotonic(t *testing.T) {
	p := app.NewPaginator(domain.SourceBusiness)

	for want := 1; want <= 3; want++ {
		got, ok := p.Advance()
		if !ok || got != want {
			t.Fatalf("advance %d: got (%d,%v)", want, got, ok)
		}
		p.Apply(page(domain.SourceBusiness, got, 3, 5))
	}
	if p.HasMore() {
		t.Fatal("exhausted after totalPages pages")
	}
	if _, ok := p.Advance(); ok {
		t.Fatal("advance past totalPages must refuse")
	}
	if got := len(p.Items()); got != 15 {
		t.Fatalf("accumulated items: %d", got)
	}
}

func TestPaginator_AdvanceWhileLoadingRefused(t *testing.T) {
	p := app.NewPaginator(domain.SourceSale)
	if _, ok := p.Advance(); !ok {
		t.Fatal("first advance must succeed")
	}
	if _, ok := p.Advance(); ok {
		t.Fatal("overlapping advance while loading must refuse")
	}
}

// Page 1 returns 20 items with totalPages=3, page 2 comes back empty:
// the empty page wins over the stale server total.
func TestPaginator_EmptyPageClampsTotal(t *testing.T) {
	p := app.NewPaginator(domain.SourceBusiness)

	p.Advance()
	p.Apply(page(domain.SourceBusiness, 1, 3, 20))
	if !p.HasMore() {
		t.Fatal("hasMore must be true after page 1 of 3")
	}

	p.Advance()
	p.Apply(domain.ResultPage{Kind: domain.SourceBusiness, Page: 2})
	if p.HasMore() {
		t.Fatal("empty page must exhaust the source")
	}
	if p.TotalPages() != 2 {
		t.Fatalf("totalPages must clamp to 2, got %d", p.TotalPages())
	}
	if got := len(p.Items()); got != 20 {
		t.Fatalf("page-1 items must survive the clamp: %d", got)
	}
}

func TestPaginator_MissingTotalDefaultsToOne(t *testing.T) {
	p := app.NewPaginator(domain.SourcePromo)
	p.Advance()
	p.Apply(page(domain.SourcePromo, 1, 0, 4))
	if p.TotalPages() != 1 || p.HasMore() {
		t.Fatalf("missing totalPages must default to 1: total=%d hasMore=%v", p.TotalPages(), p.HasMore())
	}
}

func TestPaginator_FailKeepsLastGoodState(t *testing.T) {
	p := app.NewPaginator(domain.SourceSale)
	p.Advance()
	p.Apply(page(domain.SourceSale, 1, 5, 3))

	p.Advance()
	p.Fail()
	if p.IsLoading() {
		t.Fatal("fail must clear loading")
	}
	if !p.HasMore() {
		t.Fatal("hasMore stays true so a retry can recover")
	}
	if got, ok := p.Advance(); !ok || got != 2 {
		t.Fatalf("retry must re-request the failed page: (%d,%v)", got, ok)
	}
	if got := len(p.Items()); got != 3 {
		t.Fatalf("items must be untouched by the failure: %d", got)
	}
}

func TestPaginator_AutoAdvanceBudget(t *testing.T) {
	p := app.NewPaginator(domain.SourceBusiness)
	p.Advance()
	p.Apply(page(domain.SourceBusiness, 1, 100, 1))

	fills := 0
	for {
		n, ok := p.AutoAdvance()
		if !ok {
			break
		}
		fills++
		p.Apply(page(domain.SourceBusiness, n, 100, 1))
	}
	if fills != 5 {
		t.Fatalf("auto-advance budget must stop runaway fills, got %d", fills)
	}

	// Explicit user intent is not budgeted.
	if _, ok := p.Advance(); !ok {
		t.Fatal("manual advance must still work after the budget is spent")
	}

	// A reset restores the budget for the next filter generation.
	p.Reset()
	p.Advance()
	p.Apply(page(domain.SourceBusiness, 1, 100, 1))
	if _, ok := p.AutoAdvance(); !ok {
		t.Fatal("reset must restore the auto-advance budget")
	}
}
