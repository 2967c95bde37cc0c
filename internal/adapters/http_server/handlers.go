package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"citysearch/internal/app"
	"citysearch/internal/domain"
)

type Handlers struct {
	Q        *app.QueryService
	Resolver *app.LocationResolver
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/search", h.search)
	s.mux.Get("/v1/position", h.position)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

type itemDTO struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Name       *string         `json:"name,omitempty"`
	Category   *string         `json:"category,omitempty"`
	City       *string         `json:"city,omitempty"`
	Price      *float64        `json:"price,omitempty"`
	Rating     *float64        `json:"rating,omitempty"`
	DistanceKm *float64        `json:"distanceKm,omitempty"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

type searchResponse struct {
	Items      []itemDTO `json:"items"`
	Pagination struct {
		Page       int  `json:"page"`
		TotalPages int  `json:"totalPages"`
		HasMore    bool `json:"hasMore"`
	} `json:"pagination"`
}

func toResponse(res domain.ResultPage) searchResponse {
	out := searchResponse{Items: make([]itemDTO, 0, len(res.Items))}
	for _, it := range res.Items {
		out.Items = append(out.Items, itemDTO{
			ID:         it.ID,
			Kind:       string(it.Kind),
			Name:       it.Name,
			Category:   it.Category,
			City:       it.City,
			Price:      it.Price,
			Rating:     it.Rating,
			DistanceKm: it.DistanceKm,
			Raw:        it.RawJSON,
		})
	}
	out.Pagination.Page = res.Page
	out.Pagination.TotalPages = res.TotalPages
	out.Pagination.HasMore = res.TotalPages > res.Page
	return out
}

// search decodes the shareable query-string filter state, fetches one
// page of the active tab and answers with ETag/304 support. The codec
// never fails: malformed fields simply fall away.
func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	criteria := app.Decode(r.URL.Query())
	page := 1
	if ps := r.URL.Query().Get("page"); ps != "" {
		p, err := strconv.Atoi(ps)
		if err != nil || p < 1 || p > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid page", "page must be an integer between 1 and 1000")
			return
		}
		page = p
	}

	res, err := h.Q.Search(r.Context(), criteria, page)
	if err != nil {
		log.Warn().Err(err).Str("tab", string(criteria.Tab)).Msg("search failed")
		writeProblem(w, http.StatusBadGateway, "Upstream Error", "search backend unavailable")
		return
	}

	etag, body := calcETagAndBody(toResponse(res))
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write search body")
	}
}

// position resolves the caller's coordinate through the process-wide
// resolver. Failure answers 503 with the degraded state; clients fall
// back to rating sort.
func (h *Handlers) position(w http.ResponseWriter, r *http.Request) {
	state := h.Resolver.Refresh(r.Context())
	if !state.Usable() {
		writeProblem(w, http.StatusServiceUnavailable, "Location Unavailable", state.Err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]float64{
		"lat": state.Coord.Lat,
		"lng": state.Coord.Lng,
	}); err != nil {
		log.Error().Err(err).Msg("failed to write position body")
	}
}
