package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/logger"
	"github.com/harunnryd/mcprelay/internal/tool"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// PingStatus is the outcome of the most recent liveness ping.
type PingStatus struct {
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

func (p PingStatus) OK() bool { return p.Error == "" }

type SessionOptions struct {
	// Server labels the provider in tool metadata and logs.
	Server         string
	ConnectTimeout time.Duration
}

// Session owns the single connection to the tool provider for the life of
// the process. Start makes exactly one connect attempt; a failed session
// stays failed.
type Session struct {
	connector Connector
	registry  *tool.Registry
	opts      SessionOptions

	startOnce sync.Once
	stopOnce  sync.Once
	state     atomic.Int32

	mu   sync.RWMutex
	conn Conn
	err  error
	// cancelConn ends the context the connection was opened on.
	cancelConn context.CancelFunc

	lastPing atomic.Pointer[PingStatus]
}

func NewSession(connector Connector, registry *tool.Registry, opts SessionOptions) *Session {
	if registry == nil {
		registry = tool.NewRegistry()
	}
	if strings.TrimSpace(opts.Server) == "" {
		opts.Server = "mcp"
	}
	return &Session{connector: connector, registry: registry, opts: opts}
}

// Start connects, lists tools and publishes them to the registry. Calls
// after the first return the resulting state without reconnecting.
func (s *Session) Start(ctx context.Context) State {
	s.startOnce.Do(func() {
		s.state.Store(int32(StateConnecting))
		slog.Info("Connecting to tool provider", "server", s.opts.Server)

		if err := s.connect(ctx); err != nil {
			s.fail(err)
			return
		}
		s.state.Store(int32(StateReady))
	})
	return s.State()
}

func (s *Session) connect(ctx context.Context) error {
	if s.connector == nil {
		return fmt.Errorf("no connector configured")
	}

	// Transports keep streams open on the context given to Connect, so the
	// connection gets its own context and the timeout bounds only the
	// handshake and the tool listing.
	connCtx, cancelConn := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancelConn = cancelConn
	s.mu.Unlock()

	if s.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := s.dial(ctx, connCtx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	tools, err := conn.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	entries, err := s.entries(tools)
	if err != nil {
		return err
	}
	if err := s.registry.Register(entries...); err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Descriptor.Name)
	}
	slog.Info("Connected to tool provider", "server", s.opts.Server, "tools", names)
	return nil
}

type dialResult struct {
	conn Conn
	err  error
}

// dial opens the connection on connCtx and waits for it until ctx is done.
// A handshake that finishes after ctx is done is closed.
func (s *Session) dial(ctx, connCtx context.Context) (Conn, error) {
	done := make(chan dialResult, 1)
	go func() {
		conn, err := s.connector.Connect(connCtx)
		done <- dialResult{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("handshake: %w", ctx.Err())
	}
}

func (s *Session) fail(err error) {
	s.registry.Reset()

	s.mu.Lock()
	s.err = err
	conn := s.conn
	s.conn = nil
	cancelConn := s.cancelConn
	s.mu.Unlock()

	if conn != nil {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Warn("Failed to close tool provider connection", "server", s.opts.Server, "error", closeErr)
		}
	}
	if cancelConn != nil {
		cancelConn()
	}
	s.state.Store(int32(StateFailed))
	slog.Error("Tool provider session failed", "server", s.opts.Server, "error", err)
}

func (s *Session) entries(tools []*mcpsdk.Tool) ([]tool.Entry, error) {
	entries := make([]tool.Entry, 0, len(tools))
	for i, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			return nil, relayErrors.InvalidInput(fmt.Sprintf("malformed tool list: entry %d has no name", i))
		}
		params, err := schemaMap(t.InputSchema)
		if err != nil {
			return nil, relayErrors.InvalidInput(fmt.Sprintf("malformed tool list: tool %s: %v", t.Name, err))
		}
		entries = append(entries, tool.Entry{
			Descriptor: tool.ToolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
				Metadata:    tool.ToolMetadata{Source: tool.SourceMCP, Server: s.opts.Server},
			},
			Handler: &remoteHandler{session: s, name: t.Name},
		})
	}
	return entries, nil
}

func schemaMap(schema any) (map[string]interface{}, error) {
	if schema == nil {
		return nil, nil
	}
	if m, ok := schema.(map[string]interface{}); ok {
		return m, nil
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("input schema is not an object: %w", err)
	}
	return m, nil
}

// Stop closes the connection once. It is safe before, during or after Start,
// and prevents any later Start from connecting.
func (s *Session) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.startOnce.Do(func() {})

		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		cancelConn := s.cancelConn
		s.mu.Unlock()

		if s.State() == StateReady {
			s.registry.Reset()
			s.state.Store(int32(StateDisconnected))
		}
		if conn != nil {
			err = conn.Close()
			slog.Info("Tool provider session closed", "server", s.opts.Server)
		}
		if cancelConn != nil {
			cancelConn()
		}
	})
	return err
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Ready() bool {
	return s.State() == StateReady
}

// Err is the reason the session failed, if it did.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) Server() string {
	return s.opts.Server
}

func (s *Session) Registry() *tool.Registry {
	return s.registry
}

func (s *Session) activeConn() (Conn, error) {
	if !s.Ready() {
		return nil, relayErrors.SessionUnavailable(fmt.Sprintf("session %s is %s", s.opts.Server, s.State()))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil, relayErrors.SessionUnavailable(fmt.Sprintf("session %s is closed", s.opts.Server))
	}
	return s.conn, nil
}

// CallTool issues tools/call and converts the result to handler content.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	conn, err := s.activeConn()
	if err != nil {
		return nil, err
	}

	slog.Debug("Calling remote tool", "server", s.opts.Server, "tool", name, "trace_id", logger.GetTraceID(ctx))
	res, err := conn.CallTool(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	return ResultContent(name, res)
}

// Ping checks liveness and records the outcome. It never changes State.
func (s *Session) Ping(ctx context.Context) error {
	conn, err := s.activeConn()
	if err != nil {
		return err
	}

	start := time.Now()
	err = conn.Ping(ctx)
	status := PingStatus{At: start, Duration: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
	}
	s.lastPing.Store(&status)
	return err
}

// LastPing returns the most recent ping outcome, or nil if none ran.
func (s *Session) LastPing() *PingStatus {
	return s.lastPing.Load()
}

type remoteHandler struct {
	session *Session
	name    string
}

func (h *remoteHandler) Call(ctx context.Context, args json.RawMessage) (any, error) {
	return h.session.CallTool(ctx, h.name, args)
}
