package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harunnryd/mcprelay/internal/config"
)

const maxResponseBytes = 2 << 20

// Report is the current weather for one city.
type Report struct {
	City        string  `json:"city" jsonschema:"resolved city name"`
	Temperature float64 `json:"temperature" jsonschema:"temperature in degrees Celsius"`
	Description string  `json:"description" jsonschema:"short condition text"`
}

// UpstreamError is a non-2xx answer from the weather API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("weather api returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("weather api returned %d: %s", e.Status, e.Body)
}

type owmResponse struct {
	Name string `json:"name"`
	Main *struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Client queries OpenWeatherMap's current weather endpoint.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

func NewClient(cfg config.WeatherConfig) (*Client, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = config.DefaultWeatherBaseURL
	}
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: baseURL,
		APIKey:  strings.TrimSpace(cfg.APIKey),
	}, nil
}

func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Report{}, fmt.Errorf("city is required")
	}
	if c.APIKey == "" {
		return Report{}, fmt.Errorf("missing OpenWeatherMap API key")
	}

	endpoint, err := c.endpoint(city)
	if err != nil {
		return Report{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Report{}, err
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Report{}, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Report{}, &UpstreamError{Status: resp.StatusCode, Body: upstreamMessage(body)}
	}

	var payload owmResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Report{}, fmt.Errorf("decode weather response: %w", err)
	}
	if payload.Main == nil || len(payload.Weather) == 0 {
		return Report{}, fmt.Errorf("decode weather response: missing main or weather fields")
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = city
	}
	return Report{
		City:        name,
		Temperature: payload.Main.Temp,
		Description: strings.TrimSpace(payload.Weather[0].Description),
	}, nil
}

func (c *Client) endpoint(city string) (string, error) {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid weather endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid weather endpoint %q", c.BaseURL)
	}

	q := parsed.Query()
	q.Set("q", city)
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// upstreamMessage pulls "message" out of an OpenWeatherMap error body.
func upstreamMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
