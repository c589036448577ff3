package runtime

import (
	"context"
	"fmt"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/mcp"
	"github.com/harunnryd/mcprelay/internal/model"
)

type RuntimeBuilder interface {
	WithContext(ctx context.Context) RuntimeBuilder
	WithConfig(cfg *config.Config) RuntimeBuilder
	WithConnector(connector mcp.Connector) RuntimeBuilder
	WithRouter(router model.ModelRouter) RuntimeBuilder
	Build() (*RuntimeComponents, error)
}

type DefaultRuntimeBuilder struct {
	ctx       context.Context
	cfg       *config.Config
	connector mcp.Connector
	router    model.ModelRouter
}

func NewRuntimeBuilder() RuntimeBuilder {
	return &DefaultRuntimeBuilder{}
}

func (b *DefaultRuntimeBuilder) WithContext(ctx context.Context) RuntimeBuilder {
	b.ctx = ctx
	return b
}

func (b *DefaultRuntimeBuilder) WithConfig(cfg *config.Config) RuntimeBuilder {
	b.cfg = cfg
	return b
}

// WithConnector overrides the transport built from mcp.transport.
func (b *DefaultRuntimeBuilder) WithConnector(connector mcp.Connector) RuntimeBuilder {
	b.connector = connector
	return b
}

// WithRouter overrides the router built from models.registry.
func (b *DefaultRuntimeBuilder) WithRouter(router model.ModelRouter) RuntimeBuilder {
	b.router = router
	return b
}

func (b *DefaultRuntimeBuilder) Build() (*RuntimeComponents, error) {
	if b.ctx == nil {
		b.ctx = context.Background()
	}

	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return NewRuntimeComponents(b.ctx, b.cfg, b.connector, b.router)
}
