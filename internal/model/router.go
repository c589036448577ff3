package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/mcprelay/internal/config"
	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/logger"
	"github.com/harunnryd/mcprelay/internal/model/contract"
	anthropicProvider "github.com/harunnryd/mcprelay/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/mcprelay/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/mcprelay/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewModelRouter creates a router with one provider per registry entry.
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// NewModelRouterWithProviders builds a router over already constructed providers.
func NewModelRouterWithProviders(cfg config.ModelsConfig, providers ...Provider) *DefaultModelRouter {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		router.providers[p.Name()] = p
	}
	return router
}

// Route sends a completion request to the provider registered for model, or
// to the configured fallback when model is not registered. Each request is
// sent once; a provider failure is returned as ErrCompletion.
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	traceID := logger.GetTraceID(ctx)

	slog.Info("Routing completion request", "model", model, "tools", len(req.Tools), "trace_id", traceID)

	resolved, provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.execute(ctx, resolved, provider, req, traceID)
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := r.createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return relayErrors.Internal("no providers initialized")
	}

	return nil
}

func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (string, Provider, error) {
	select {
	case <-ctx.Done():
		return "", nil, relayErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return model, provider, nil
	}

	slog.Warn("Model not found", "model", model)
	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Trying fallback model", "model", model, "fallback", r.cfg.Fallback)
			return r.cfg.Fallback, fallbackProvider, nil
		}
	}

	return "", nil, relayErrors.NotFound(fmt.Sprintf("model %s not found", model))
}

func (r *DefaultModelRouter) execute(ctx context.Context, model string, provider Provider, req contract.CompletionRequest, traceID string) (*contract.CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return nil, relayErrors.Completion(ctx.Err(), "completion request cancelled")
	default:
	}

	req.Model = model
	resp, err := provider.Generate(ctx, req)
	if err != nil {
		slog.Error("Provider request failed", "model", model, "error", err, "trace_id", traceID)
		return nil, relayErrors.Completion(err, "provider request failed")
	}

	slog.Info("Request completed", "model", model, "tool_calls", len(resp.ToolCalls), "trace_id", traceID)
	return resp, nil
}

func (r *DefaultModelRouter) createProvider(entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}

		if entry.APIKey == "" {
			return nil, relayErrors.InvalidInput("API key required for OpenAI provider")
		}

		return NewProviderAdapter(openaiProvider.New(entry.APIKey, baseURL), entry.Name, "openai"), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return NewProviderAdapter(openaiProvider.New(apiKey, baseURL), entry.Name, "ollama"), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, relayErrors.InvalidInput("API key required for Anthropic provider")
		}

		return NewProviderAdapter(anthropicProvider.New(entry.APIKey, entry.BaseURL), entry.Name, "anthropic"), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, relayErrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(entry.APIKey)
		if err != nil {
			return nil, relayErrors.WrapWithCategory(err, "failed to create Gemini provider", relayErrors.ErrInternal)
		}

		return NewProviderAdapter(provider, entry.Name, "gemini"), nil

	default:
		return nil, relayErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}
