package app_test

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"citysearch/internal/app"
	"citysearch/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestQueryService_CacheMissThenHit(t *testing.T) {
	gw := &fakeGateway{fn: func(kind domain.SourceKind, _ url.Values, _ int) (domain.ResultPage, error) {
		return itemsPage(kind, 2, "first"), nil
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(gw, cache, 10*time.Minute)
	c := domain.Criteria{FreeText: "coffee", Tab: domain.TabBusiness}

	out, err := q.Search(context.Background(), c, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "first" {
		t.Fatalf("unexpected page: %+v", out)
	}

	// Change the backend answer; the second read must come from cache.
	gw.fn = func(kind domain.SourceKind, _ url.Values, _ int) (domain.ResultPage, error) {
		return itemsPage(kind, 2, "SHOULD NOT SEE THIS"), nil
	}
	out2, err := q.Search(context.Background(), c, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out2.Items[0].ID != "first" {
		t.Fatalf("expected cached item, got %s", out2.Items[0].ID)
	}
	if gw.callCount() != 1 {
		t.Fatalf("backend calls: %d", gw.callCount())
	}
}

func TestQueryService_PromoPolicySkipsBackend(t *testing.T) {
	gw := &fakeGateway{fn: func(kind domain.SourceKind, _ url.Values, _ int) (domain.ResultPage, error) {
		t.Fatal("excluded source must not reach the backend")
		return domain.ResultPage{}, nil
	}}
	q := app.NewQueryService(gw, &fakeCache{}, time.Minute)

	c := domain.Criteria{CategoryName: "Cafes", Tab: domain.TabPromo}
	out, err := q.Search(context.Background(), c, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 0 || out.TotalPages != out.Page {
		t.Fatalf("excluded source must present as empty and exhausted: %+v", out)
	}
}

func TestQueryService_AppliesPricePolicy(t *testing.T) {
	gw := &fakeGateway{fn: func(kind domain.SourceKind, _ url.Values, _ int) (domain.ResultPage, error) {
		return domain.ResultPage{Kind: kind, Page: 1, TotalPages: 1, Items: []domain.Item{
			{ID: "priced", Kind: kind, Price: ptr(20.0)},
			{ID: "unpriced", Kind: kind},
		}}, nil
	}}
	q := app.NewQueryService(gw, &fakeCache{}, time.Minute)

	c := domain.Criteria{PriceMin: ptr(10.0), Tab: domain.TabSale}
	out, err := q.Search(context.Background(), c, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "priced" {
		t.Fatalf("price policy not applied: %+v", out.Items)
	}

	// The cache holds the unfiltered page, so opting into no-price
	// items reuses the entry and reveals both.
	c.IncludeNoPrice = true
	out, err = q.Search(context.Background(), c, 1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("noPrice opt-in must reveal unpriced items: %+v", out.Items)
	}
	if gw.callCount() != 1 {
		t.Fatalf("both reads must share one backend call, got %d", gw.callCount())
	}
}

func TestQueryService_CityPointEnablesDistance(t *testing.T) {
	gw := &fakeGateway{fn: func(kind domain.SourceKind, params url.Values, _ int) (domain.ResultPage, error) {
		if params.Get("lat") != "32.79" || params.Get("sort") != "distance" {
			t.Fatalf("geocoded city point must enable distance mode: %v", params)
		}
		return itemsPage(kind, 1, "a"), nil
	}}
	q := app.NewQueryService(gw, &fakeCache{}, time.Minute)

	c := domain.Criteria{
		City: "Haifa", CityLat: ptr(32.79), CityLng: ptr(34.98),
		Sort: domain.SortDistance, Tab: domain.TabBusiness,
	}
	if _, err := q.Search(context.Background(), c, 1); err != nil {
		t.Fatalf("err: %v", err)
	}
}
