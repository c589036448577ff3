package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolName        = "query_weather"
	ToolDescription = "Retrieve current weather information for a specified city."

	// MCPPath is where the streamable HTTP endpoint is mounted.
	MCPPath = "/mcp"
	// SSEPath serves the legacy SSE transport; messages are posted back to it.
	SSEPath = "/sse"
)

// Fetcher looks up current conditions for a city.
type Fetcher interface {
	Current(ctx context.Context, city string) (Report, error)
}

type queryInput struct {
	City string `json:"city"`
}

func inputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "Name of the city to get weather information for.",
			},
		},
		"required": []any{"city"},
	}
}

// NewServer builds an MCP server exposing query_weather backed by fetcher.
func NewServer(fetcher Fetcher, version string) *mcpsdk.Server {
	if version == "" {
		version = "dev"
	}
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "Weather App", Version: version}, nil)
	server.AddTool(&mcpsdk.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		InputSchema: inputSchema(),
	}, queryHandler(fetcher))
	return server
}

func queryHandler(fetcher Fetcher) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var in queryInput
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}
		city := strings.TrimSpace(in.City)
		if city == "" {
			return errorResult("City parameter is required."), nil
		}

		slog.Info("Fetching weather", "city", city)
		start := time.Now()
		report, err := fetcher.Current(ctx, city)
		if err != nil {
			slog.Warn("Weather lookup failed", "city", city, "duration", time.Since(start), "error", err)
			return errorResult(err.Error()), nil
		}

		body, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}
		return &mcpsdk.CallToolResult{
			Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(body)}},
			StructuredContent: report,
		}, nil
	}
}

func errorResult(message string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: message}},
	}
}

// ServeStdio serves server on stdin/stdout until ctx ends or the peer hangs up.
func ServeStdio(ctx context.Context, server *mcpsdk.Server) error {
	slog.Info("Starting weather MCP server", "transport", "stdio")
	err := server.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("Weather MCP server stopped")
	return nil
}

// Router mounts the streamable HTTP endpoint at MCPPath and the SSE endpoint
// at SSEPath.
func Router(server *mcpsdk.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server { return server }, nil)
	r.Handle(MCPPath, handler)
	r.Handle(SSEPath, mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server { return server }, nil))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}

// ServeHTTP serves server over streamable HTTP and SSE on addr until ctx ends.
func ServeHTTP(ctx context.Context, server *mcpsdk.Server, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting weather MCP server", "transport", "http", "addr", addr, "path", MCPPath, "sse_path", SSEPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("weather server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("weather server shutdown: %w", err)
	}
	slog.Info("Weather MCP server stopped")
	return nil
}
