package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Place types understood by the location handler.
const (
	PlaceGasStation = "gas_station"
	PlaceParking    = "parking"
	PlaceRestaurant = "restaurant"
)

const defaultPlacesURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// LocationConfig holds configuration for the nearby-place search handler.
type LocationConfig struct {
	APIKey      string
	EndpointURL string        // Default: Google Places nearby search
	Radius      int           // Search radius in meters, default: 1000
	MaxResults  int           // Default: 5
	HTTPTimeout time.Duration // Default: 15s
}

// PlacesSearch implements LocationSearcher against a Places-style nearby
// search API.
type PlacesSearch struct {
	http       *http.Client
	apiKey     string
	endpoint   string
	radius     int
	maxResults int
}

// NewPlacesSearch creates a location handler from the configuration.
func NewPlacesSearch(cfg LocationConfig) *PlacesSearch {
	endpoint := cfg.EndpointURL
	if endpoint == "" {
		endpoint = defaultPlacesURL
	}
	radius := cfg.Radius
	if radius <= 0 {
		radius = 1000
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PlacesSearch{
		http:       &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		radius:     radius,
		maxResults: maxResults,
	}
}

type placesResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name     string  `json:"name"`
		Vicinity string  `json:"vicinity"`
		Rating   float64 `json:"rating"`
		Opening  *struct {
			OpenNow bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

// Search returns a formatted list of nearby places of the given type.
func (h *PlacesSearch) Search(ctx context.Context, lat, lon float64, placeType string) (string, error) {
	if placeType == "" {
		placeType = PlaceRestaurant
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("radius", fmt.Sprintf("%d", h.radius))
	params.Set("type", placeType)
	params.Set("key", h.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "build places request")
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "places search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("places search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", errors.Wrap(err, "read places response")
	}

	var result placesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Wrap(err, "parse places response")
	}
	if result.Status != "OK" && result.Status != "ZERO_RESULTS" {
		return "", errors.Errorf("places search: status %s", result.Status)
	}
	if len(result.Results) == 0 {
		return "附近找不到符合的地點。", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📍 附近的 %s：\n", placeTypeLabel(placeType)))
	for i, place := range result.Results {
		if i >= h.maxResults {
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, place.Name))
		if place.Rating > 0 {
			sb.WriteString(fmt.Sprintf("（⭐ %.1f）", place.Rating))
		}
		if place.Opening != nil && place.Opening.OpenNow {
			sb.WriteString(" 營業中")
		}
		if place.Vicinity != "" {
			sb.WriteString("\n   " + place.Vicinity)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func placeTypeLabel(placeType string) string {
	switch placeType {
	case PlaceGasStation:
		return "加油站"
	case PlaceParking:
		return "停車場"
	case PlaceRestaurant:
		return "餐廳"
	default:
		return placeType
	}
}

var _ LocationSearcher = (*PlacesSearch)(nil)
