// Package geo resolves a human-readable place for a coordinate fix, or a
// coarse location from the caller's IP when no fix is available.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zaltra000/mihrab-sala/internal/config"
	"github.com/zaltra000/mihrab-sala/internal/model"
)

const (
	LabelCurrent = "موقعك الحالي"
	LabelDefault = "مكة المكرمة (افتراضي)"
)

type Source string

const (
	SourceDevice  Source = "device"
	SourceIP      Source = "ip"
	SourceDefault Source = "default"
)

// Place is the outcome of a lookup. Coordinates is nil when nothing better
// than the default location is known.
type Place struct {
	Coordinates *model.Coordinates `json:"coordinates,omitempty"`
	Label       string             `json:"label"`
	CountryCode string             `json:"country_code,omitempty"`
	Source      Source             `json:"source"`
}

type Locator struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

func NewLocator(cfg config.GeoConfig) *Locator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Locator{
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewLocatorWithClient is used by tests to point at a fake server.
func NewLocatorWithClient(baseURL, language string, httpClient *http.Client) *Locator {
	return &Locator{baseURL: baseURL, language: language, httpClient: httpClient}
}

type reverseResponse struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city"`
	Locality    string  `json:"locality"`
	CountryName string  `json:"countryName"`
	CountryCode string  `json:"countryCode"`
}

func (r reverseResponse) label() string {
	city := r.City
	if city == "" {
		city = r.Locality
	}
	var parts []string
	for _, p := range []string{city, r.CountryName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "، ")
}

// Resolve never fails. With coordinates it reverse-geocodes them and keeps
// them even if the lookup fails. Without coordinates it asks for an IP based
// position and falls back to the default location.
func (l *Locator) Resolve(ctx context.Context, coords *model.Coordinates) Place {
	if coords != nil {
		fix := *coords
		place := Place{Coordinates: &fix, Label: LabelCurrent, Source: SourceDevice}
		resp, err := l.lookup(ctx, coords)
		if err != nil {
			slog.Warn("Reverse geocoding failed", "lat", fix.Latitude, "lng", fix.Longitude, "error", err)
			return place
		}
		if label := resp.label(); label != "" {
			place.Label = label
		}
		place.CountryCode = resp.CountryCode
		return place
	}

	resp, err := l.lookup(ctx, nil)
	if err != nil || (resp.Latitude == 0 && resp.Longitude == 0) {
		if err != nil {
			slog.Warn("IP location lookup failed", "error", err)
		}
		return Place{Label: LabelDefault, Source: SourceDefault}
	}

	place := Place{
		Coordinates: &model.Coordinates{Latitude: resp.Latitude, Longitude: resp.Longitude},
		Label:       resp.label(),
		CountryCode: resp.CountryCode,
		Source:      SourceIP,
	}
	if place.Label == "" {
		place.Label = LabelCurrent
	}
	return place
}

func (l *Locator) lookup(ctx context.Context, coords *model.Coordinates) (reverseResponse, error) {
	var out reverseResponse

	q := url.Values{}
	if coords != nil {
		q.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
		q.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	}
	if l.language != "" {
		q.Set("localityLanguage", l.language)
	}

	endpoint := l.baseURL
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("geocode api error: status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode geocode response: %w", err)
	}
	return out, nil
}
