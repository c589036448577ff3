package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/mcprelay/internal/config"
	"github.com/harunnryd/mcprelay/internal/daemon"
	"github.com/harunnryd/mcprelay/internal/mcp"
)

const MCPSessionName = "MCPSession"

// MCPSessionComponent connects the tool provider once at startup and keeps
// a liveness ping running while the daemon is up. A failed connect does not
// stop the daemon; chat requests are answered with the unavailable message.
type MCPSessionComponent struct {
	session *mcp.Session
	cfg     config.MCPConfig
	pinger  *mcp.Pinger
	mu      sync.RWMutex
	started bool
}

func NewMCPSessionComponent(session *mcp.Session, cfg config.MCPConfig) *MCPSessionComponent {
	return &MCPSessionComponent{session: session, cfg: cfg}
}

func (c *MCPSessionComponent) Name() string {
	return MCPSessionName
}

func (c *MCPSessionComponent) Dependencies() []string {
	return nil
}

func (c *MCPSessionComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return fmt.Errorf("mcp session is nil")
	}
	if c.cfg.PingSchedule == "" {
		return nil
	}

	timeout, err := c.cfg.PingTimeoutDuration()
	if err != nil {
		return err
	}
	pinger, err := mcp.NewPinger(c.session, c.cfg.PingSchedule, timeout)
	if err != nil {
		return err
	}
	c.pinger = pinger
	return nil
}

func (c *MCPSessionComponent) Start(ctx context.Context) error {
	state := c.session.Start(ctx)
	if state != mcp.StateReady {
		slog.Error("Tool provider unavailable, serving degraded", "component", c.Name(), "state", state, "error", c.session.Err())
	} else {
		slog.Info("Tool provider connected", "component", c.Name(), "tools", c.session.Registry().Snapshot().Len())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinger != nil {
		c.pinger.Start()
	}
	c.started = true
	return nil
}

func (c *MCPSessionComponent) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pinger != nil {
		if err := c.pinger.Stop(ctx); err != nil {
			slog.Warn("Ping schedule did not stop cleanly", "component", c.Name(), "error", err)
		}
	}
	c.started = false
	return c.session.Stop()
}

func (c *MCPSessionComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := c.session.State()
	details := map[string]interface{}{
		"state": state.String(),
		"tools": c.session.Registry().Snapshot().Len(),
	}
	if ping := c.session.LastPing(); ping != nil {
		last := map[string]interface{}{
			"at":          ping.At.Format(time.RFC3339),
			"duration_ms": ping.Duration.Milliseconds(),
			"ok":          ping.OK(),
		}
		if !ping.OK() {
			last["error"] = ping.Error
		}
		details["last_ping"] = last
	}

	health := &daemon.ComponentHealth{
		Name:    c.Name(),
		Healthy: state == mcp.StateReady,
		Details: details,
	}
	if !health.Healthy {
		if err := c.session.Err(); err != nil {
			health.Error = err
		} else {
			health.Error = fmt.Errorf("session %s", state)
		}
	}
	return health, nil
}
