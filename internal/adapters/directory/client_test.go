package directory_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"citysearch/internal/adapters/directory"
	"citysearch/internal/domain"
)

func TestClient_Search_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			if r.URL.Path != "/v1/sales/search" {
				t.Errorf("path: %s", r.URL.Path)
			}
			if r.URL.Query().Get("categoryId") != "A" || r.URL.Query().Get("page") != "2" {
				t.Errorf("query: %s", r.URL.RawQuery)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": "s1", "name": "Couch", "price": 120.0},
				},
				"pagination": map[string]any{"page": 2, "limit": 20, "totalPages": 4},
			})
		}
	}))
	defer ts.Close()

	cl, err := directory.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	got, err := cl.Search(ctx, domain.SourceSale, url.Values{"categoryId": {"A"}}, 2)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Page != 2 || got.TotalPages != 4 || len(got.Items) != 1 {
		t.Fatalf("unexpected page: %+v", got)
	}
	it := got.Items[0]
	if it.ID != "s1" || it.Kind != domain.SourceSale || it.Price == nil || *it.Price != 120 {
		t.Fatalf("unexpected item: %+v", it)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_Search_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := directory.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.Search(ctx, domain.SourceBusiness, url.Values{}, 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Search_UnknownSource(t *testing.T) {
	cl, err := directory.New("http://localhost:0", "k", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := cl.Search(context.Background(), domain.SourceKind("bogus"), url.Values{}, 1); err == nil {
		t.Fatal("expected error for unknown source kind")
	}
}
