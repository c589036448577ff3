package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger pings a ready session on a cron schedule and records the outcome.
type Pinger struct {
	session *Session
	cron    *cron.Cron
	timeout time.Duration
}

// NewPinger accepts standard cron expressions and descriptors such as "@every 30s".
func NewPinger(session *Session, schedule string, timeout time.Duration) (*Pinger, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid ping schedule %q: %w", schedule, err)
	}

	p := &Pinger{session: session, cron: cron.New(), timeout: timeout}
	if _, err := p.cron.AddFunc(schedule, p.Tick); err != nil {
		return nil, fmt.Errorf("schedule ping: %w", err)
	}
	return p, nil
}

func (p *Pinger) Start() {
	p.cron.Start()
}

// Stop halts the schedule and waits for a running ping to finish or ctx to end.
func (p *Pinger) Stop(ctx context.Context) error {
	done := p.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs one ping. A session that is not ready is skipped.
func (p *Pinger) Tick() {
	if !p.session.Ready() {
		return
	}

	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.session.Ping(ctx); err != nil {
		slog.Warn("Tool provider ping failed", "server", p.session.Server(), "error", err)
		return
	}
	slog.Debug("Tool provider ping ok", "server", p.session.Server())
}
