package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/mcp"
	"github.com/harunnryd/mcprelay/internal/model"
	"github.com/harunnryd/mcprelay/internal/relay"
	"github.com/harunnryd/mcprelay/internal/tool"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RuntimeComponents is the wired relay: one tool provider session, its
// registry, the completion router and the relay on top.
type RuntimeComponents struct {
	Ctx    context.Context
	Cancel context.CancelFunc

	Config    *config.Config
	Transport mcp.TransportSpec

	Registry *tool.Registry
	Session  *mcp.Session
	Router   model.ModelRouter
	Relay    *relay.Relay
	Handler  *relay.Handler
}

func NewRuntimeComponents(ctx context.Context, cfg *config.Config, connector mcp.Connector, router model.ModelRouter) (*RuntimeComponents, error) {
	ctx, cancel := context.WithCancel(ctx)
	rc := &RuntimeComponents{Ctx: ctx, Cancel: cancel, Config: cfg}

	if err := rc.build(connector, router); err != nil {
		cancel()
		return nil, err
	}
	return rc, nil
}

func (rc *RuntimeComponents) build(connector mcp.Connector, router model.ModelRouter) error {
	cfg := rc.Config

	spec, err := mcp.ParseTransport(cfg.MCP.Transport)
	if err != nil {
		return fmt.Errorf("mcp.transport: %w", err)
	}
	rc.Transport = spec

	connectTimeout, err := cfg.MCP.ConnectTimeoutDuration()
	if err != nil {
		return err
	}

	if connector == nil {
		connector = mcp.NewSpecConnector(&mcpsdk.Implementation{
			Name:    cfg.MCP.ClientName,
			Version: cfg.MCP.ClientVersion,
		}, spec, cfg.MCP.Workdir)
	}

	if router == nil {
		defaultRouter, err := model.NewModelRouter(cfg.Models)
		if err != nil {
			return fmt.Errorf("init model router: %w", err)
		}
		router = defaultRouter
	}

	rc.Registry = tool.NewRegistry()
	rc.Session = mcp.NewSession(connector, rc.Registry, mcp.SessionOptions{
		Server:         spec.String(),
		ConnectTimeout: connectTimeout,
	})
	rc.Router = router
	rc.Relay = relay.New(relay.Deps{
		Session:  rc.Session,
		Registry: rc.Registry,
		Router:   router,
		Model:    cfg.Models.Default,
		Parallel: cfg.Relay.ParallelToolCalls,
	})
	rc.Handler = relay.NewHandler(rc.Relay, rc.Registry, cfg.Relay)

	slog.Debug("Runtime components built", "transport", spec.String(), "model", cfg.Models.Default)
	return nil
}

// Connect starts the tool provider session for commands that run outside the daemon.
func (rc *RuntimeComponents) Connect() mcp.State {
	state := rc.Session.Start(rc.Ctx)
	if state != mcp.StateReady {
		slog.Warn("Tool provider unavailable", "transport", rc.Transport.String(), "error", rc.Session.Err())
	}
	return state
}

func (rc *RuntimeComponents) Stop() {
	if err := rc.Session.Stop(); err != nil {
		slog.Warn("Tool provider close failed", "error", err)
	}
	rc.Cancel()
}
