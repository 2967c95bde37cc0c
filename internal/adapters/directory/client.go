package directory

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"citysearch/internal/adapters/observability"
	"citysearch/internal/domain"
)

// Client talks to the directory backend's search endpoints over HTTP,
// one per collection plus the unified cross-collection endpoint. All
// request parameters travel as a flat query string; responses are
// `{items, pagination}` JSON.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 15 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var endpoints = map[domain.SourceKind]string{
	domain.SourceBusiness: "/v1/businesses/search",
	domain.SourceSale:     "/v1/sales/search",
	domain.SourcePromo:    "/v1/promos/search",
	domain.SourceUnified:  "/v1/search",
}

// Search fetches one page of one source. The page parameter is added
// here so callers hand over builder output untouched.
func (c *Client) Search(ctx context.Context, kind domain.SourceKind, params url.Values, page int) (domain.ResultPage, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return domain.ResultPage{}, fmt.Errorf("directory: unknown source %q", kind)
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))

	var wire wirePage
	if err := c.get(ctx, string(kind), c.base+ep+"?"+q.Encode(), &wire); err != nil {
		return domain.ResultPage{}, err
	}
	return wire.toDomain(kind, page), nil
}

// ---- wire format ----

type wirePage struct {
	Items      []wireItem     `json:"items"`
	Pagination wirePagination `json:"pagination"`
}

type wirePagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type wireItem struct {
	ID         string    `json:"id"`
	Name       *string   `json:"name"`
	Category   *string   `json:"category"`
	City       *string   `json:"city"`
	Price      *float64  `json:"price"`
	Rating     *float64  `json:"rating"`
	DistanceKm *float64  `json:"distanceKm"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (w wirePage) toDomain(kind domain.SourceKind, page int) domain.ResultPage {
	out := domain.ResultPage{
		Kind:       kind,
		Page:       page,
		PageSize:   w.Pagination.Limit,
		TotalPages: w.Pagination.TotalPages,
	}
	if w.Pagination.Page > 0 {
		out.Page = w.Pagination.Page
	}
	for _, it := range w.Items {
		raw, _ := json.Marshal(it)
		upd := it.UpdatedAt
		if upd.IsZero() {
			upd = it.CreatedAt
		}
		out.Items = append(out.Items, domain.Item{
			ID:         it.ID,
			Kind:       kind,
			Name:       it.Name,
			Category:   it.Category,
			City:       it.City,
			Price:      it.Price,
			Rating:     it.Rating,
			DistanceKm: it.DistanceKm,
			CreatedAt:  it.CreatedAt,
			UpdatedAt:  upd,
			RawJSON:    raw,
		})
	}
	return out
}

// ---- transport internals ----

// get performs a GET with client-side rate limiting, retries and JSON
// decode into out. Retries on 429 and transient 5xx, honoring
// Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, full string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "citysearch/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("directory", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: remote %d", domain.ErrUnavailable, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("directory: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date); 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles per attempt (150ms, 300ms, 600ms...) with up to +50%
// jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 150 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
