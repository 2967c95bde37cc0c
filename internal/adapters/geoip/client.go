package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"citysearch/internal/adapters/observability"
	"citysearch/internal/domain"
)

// Client resolves the caller's position through an IP-geolocation
// provider. One endpoint, one attempt: the location resolver treats
// failure as a non-fatal degraded mode, so aggressive retrying here
// would only delay the rating fallback.
type Client struct {
	base string
	key  string
	hc   *http.Client
}

func New(base, key string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{Timeout: 5 * time.Second},
	}
}

type wirePosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Locate implements domain.Geolocator.
func (c *Client) Locate(ctx context.Context) (domain.Coords, error) {
	pos, err := c.locate(ctx)
	if err != nil {
		observability.ObserveLocation("failed")
		return domain.Coords{}, err
	}
	observability.ObserveLocation("resolved")
	return pos, nil
}

func (c *Client) locate(ctx context.Context) (domain.Coords, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/position", nil)
	if err != nil {
		return domain.Coords{}, err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.Coords{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("geoip", "position", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Coords{}, fmt.Errorf("geoip: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var pos wirePosition
	if err := json.NewDecoder(resp.Body).Decode(&pos); err != nil {
		return domain.Coords{}, err
	}
	return domain.Coords{Lat: pos.Lat, Lng: pos.Lng}, nil
}
