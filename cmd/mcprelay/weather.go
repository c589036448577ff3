package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/weather"

	"github.com/spf13/cobra"
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Weather MCP server",
}

var weatherServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query_weather tool over stdio or HTTP (streamable and SSE)",
	Long:  `Runs an MCP server exposing query_weather backed by OpenWeatherMap. Requires OPENWEATHER_API_KEY or weather.api_key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		client, err := weather.NewClient(cfg.Weather)
		if err != nil {
			return err
		}
		server := weather.NewServer(client, version)

		sig := NewSignalHandler(context.Background())
		sig.Start()
		defer sig.Stop()

		switch strings.ToLower(strings.TrimSpace(cfg.Weather.Transport)) {
		case "", "stdio":
			return weather.ServeStdio(sig.Context(), server)
		case "http", "streamable", "sse":
			shutdown, err := config.DurationOrDefault(cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
			if err != nil {
				return err
			}
			return weather.ServeHTTP(sig.Context(), server, cfg.Weather.Addr, shutdown)
		default:
			return fmt.Errorf("unknown weather.transport %q (stdio, http)", cfg.Weather.Transport)
		}
	},
}

func init() {
	weatherServeCmd.Flags().String("weather.transport", config.DefaultWeatherTransport, "stdio or http")
	weatherServeCmd.Flags().String("weather.addr", config.DefaultWeatherAddr, "listen address for http transport (/mcp streamable, /sse legacy SSE)")
	weatherCmd.AddCommand(weatherServeCmd)
	rootCmd.AddCommand(weatherCmd)
}
