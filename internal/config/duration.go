package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses a duration string and falls back to defaultValue when empty.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		candidate = strings.TrimSpace(defaultValue)
	}
	if candidate == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(candidate)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", candidate, err)
	}
	return d, nil
}

func (c MCPConfig) ConnectTimeoutDuration() (time.Duration, error) {
	d, err := DurationOrDefault(c.ConnectTimeout, DefaultMCPConnectTimeout)
	if err != nil {
		return 0, fmt.Errorf("mcp.connect_timeout: %w", err)
	}
	return d, nil
}

func (c MCPConfig) PingTimeoutDuration() (time.Duration, error) {
	d, err := DurationOrDefault(c.PingTimeout, DefaultMCPPingTimeout)
	if err != nil {
		return 0, fmt.Errorf("mcp.ping_timeout: %w", err)
	}
	return d, nil
}

func (c WeatherConfig) TimeoutDuration() (time.Duration, error) {
	d, err := DurationOrDefault(c.Timeout, DefaultWeatherTimeout)
	if err != nil {
		return 0, fmt.Errorf("weather.timeout: %w", err)
	}
	return d, nil
}
