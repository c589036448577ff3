package model

import (
	"context"
	"fmt"

	"github.com/harunnryd/mcprelay/internal/model/contract"
)

type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ProviderAdapter binds a provider-specific client to a registry entry name.
type ProviderAdapter struct {
	provider     generator
	name         string
	providerType string
}

func NewProviderAdapter(provider generator, name, providerType string) *ProviderAdapter {
	return &ProviderAdapter{provider: provider, name: name, providerType: providerType}
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if a.provider == nil {
		return nil, fmt.Errorf("provider %s is not initialized", a.name)
	}
	if req.Model == "" {
		req.Model = a.name
	}
	return a.provider.Generate(ctx, req)
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}
