package app_test

import (
	"reflect"
	"testing"

	"citysearch/internal/app"
	"citysearch/internal/domain"
)

func TestPricePolicy(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Price: ptr(15.0)},
		{ID: "b"}, // no price
		{ID: "c", Price: ptr(80.0)},
	}

	// No bound set: everything passes.
	c := domain.Criteria{}
	if got := app.ApplyPricePolicy(items, c); len(got) != 3 {
		t.Fatalf("no bound: %d items", len(got))
	}

	// Bound set, no-price items excluded by default.
	c.PriceMin = ptr(10.0)
	got := app.ApplyPricePolicy(items, c)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("bound without noPrice: %+v", got)
	}

	// Opt-in keeps them.
	c.IncludeNoPrice = true
	if got := app.ApplyPricePolicy(items, c); len(got) != 3 {
		t.Fatalf("bound with noPrice: %d items", len(got))
	}
}

func TestPricePolicy_Idempotent(t *testing.T) {
	items := []domain.Item{
		{ID: "a", Price: ptr(15.0)},
		{ID: "b"},
		{ID: "c", Price: ptr(80.0)},
	}
	c := domain.Criteria{PriceMax: ptr(100.0)}

	once := app.ApplyPricePolicy(items, c)
	twice := app.ApplyPricePolicy(once, c)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("policy must be idempotent:\nonce  %+v\ntwice %+v", once, twice)
	}
	if len(items) != 3 {
		t.Fatal("input must not be mutated")
	}
}
