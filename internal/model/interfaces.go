package model

import (
	"context"

	"github.com/harunnryd/mcprelay/internal/model/contract"
)

// ModelRouter is the completion service the relay talks to.
type ModelRouter interface {
	Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	ListModels() []string
}

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
	Type() string
}
