package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/DGMadMax/mcp-rbac/common/httpx"
	"github.com/DGMadMax/mcp-rbac/rbac"
	"github.com/DGMadMax/mcp-rbac/schema"
)

// WeatherTool answers weather questions via Open-Meteo, which needs no
// API key. The city is pulled from the query text and resolved through
// the geocoding endpoint.
type WeatherTool struct {
	GeocodeEndpoint  string
	ForecastEndpoint string
	Client           *httpx.Client
}

func (t *WeatherTool) Name() string { return NameWeather }

// cityPattern matches "... in <city>" and "... for <city>" phrasings.
var cityPattern = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([a-zA-Z][a-zA-Z\s\-]{1,40}?)(?:\s*\?|\s*$|\s+(?:today|tomorrow|now|right now))`)

func extractCity(query string) string {
	m := cityPattern.FindStringSubmatch(query)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func (t *WeatherTool) Call(ctx context.Context, queries []string, rc rbac.Context) (*Result, error) {
	var blocks []string
	var citations []schema.Citation
	for _, q := range queries {
		city := extractCity(q)
		if city == "" {
			blocks = append(blocks, "Could not identify a city in the question. Please mention a city name.")
			continue
		}
		lat, lon, resolved, err := t.geocode(ctx, city)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", city, err)
		}
		report, err := t.currentWeather(ctx, lat, lon)
		if err != nil {
			return nil, fmt.Errorf("weather for %q: %w", resolved, err)
		}
		blocks = append(blocks, fmt.Sprintf("Weather in %s: %.1f°C, Wind: %.1f km/h", resolved, report.Temperature, report.Windspeed))
		citations = append(citations, schema.Citation{Type: schema.CitationWeather, Locator: resolved})
	}
	return &Result{Tool: NameWeather, Text: strings.Join(blocks, "\n"), Citations: citations}, nil
}

func (t *WeatherTool) client() *httpx.Client {
	if t.Client == nil {
		t.Client = httpx.NewFromConfig(nil)
	}
	return t.Client
}

func (t *WeatherTool) geocode(ctx context.Context, city string) (lat, lon float64, name string, err error) {
	endpoint := "https://geocoding-api.open-meteo.com/v1/search"
	if t.GeocodeEndpoint != "" {
		endpoint = t.GeocodeEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, 0, "", err
	}
	q := u.Query()
	q.Set("name", city)
	q.Set("count", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, 0, "", err
	}
	resp, err := t.client().Do(req)
	if err != nil {
		return 0, 0, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, "", fmt.Errorf("geocoding api returned status %d", resp.StatusCode)
	}

	var geo struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return 0, 0, "", err
	}
	if len(geo.Results) == 0 {
		return 0, 0, "", fmt.Errorf("no location found for %q", city)
	}
	r := geo.Results[0]
	return r.Latitude, r.Longitude, r.Name, nil
}

type weatherReport struct {
	Temperature float64 `json:"temperature"`
	Windspeed   float64 `json:"windspeed"`
	WeatherCode int     `json:"weathercode"`
}

func (t *WeatherTool) currentWeather(ctx context.Context, lat, lon float64) (*weatherReport, error) {
	endpoint := "https://api.open-meteo.com/v1/forecast"
	if t.ForecastEndpoint != "" {
		endpoint = t.ForecastEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current_weather", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("forecast api returned status %d", resp.StatusCode)
	}

	var body struct {
		CurrentWeather weatherReport `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return &body.CurrentWeather, nil
}
