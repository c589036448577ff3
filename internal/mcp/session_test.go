package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	relayErrors "github.com/harunnryd/mcprelay/internal/errors"
	"github.com/harunnryd/mcprelay/internal/tool"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImpl = &mcpsdk.Implementation{Name: "mcprelay-test", Version: "test"}

// inMemoryConnector serves server over in-memory transports and counts connects.
func inMemoryConnector(t *testing.T, server *mcpsdk.Server, connects *atomic.Int32) Connector {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return NewSDKConnector(testImpl, func() (mcpsdk.Transport, error) {
		if connects != nil {
			connects.Add(1)
		}
		serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
		serverSession, err := server.Connect(ctx, serverTransport, nil)
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { _ = serverSession.Close() })
		return clientTransport, nil
	})
}

func weatherServer() *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "weather", Version: "test"}, nil)
	server.AddTool(&mcpsdk.Tool{
		Name:        "query_weather",
		Description: "Look up the current weather for a city",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
			"required":   []any{"city"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var in struct {
			City string `json:"city"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
			return nil, err
		}
		if in.City == "Atlantis" {
			return &mcpsdk.CallToolResult{
				IsError: true,
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "city not found"}},
			}, nil
		}
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: `{"city":"` + in.City + `","temperature":18.5,"description":"clear sky"}`}},
		}, nil
	})
	server.AddTool(&mcpsdk.Tool{
		Name:        "stats",
		Description: "Structured output",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			StructuredContent: map[string]any{"calls": 3},
			Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: "3 calls"}},
		}, nil
	})
	return server
}

func TestSession_StartRegistersTools(t *testing.T) {
	var connects atomic.Int32
	registry := tool.NewRegistry()
	session := NewSession(inMemoryConnector(t, weatherServer(), &connects), registry, SessionOptions{Server: "weather", ConnectTimeout: 5 * time.Second})
	t.Cleanup(func() { _ = session.Stop() })

	assert.Equal(t, StateDisconnected, session.State())
	require.Equal(t, StateReady, session.Start(context.Background()))
	assert.True(t, session.Ready())
	assert.NoError(t, session.Err())

	list := registry.List()
	require.Len(t, list, 2)
	names := []string{list[0].Name, list[1].Name}
	assert.ElementsMatch(t, []string{"query_weather", "stats"}, names)
	for _, d := range list {
		assert.Equal(t, tool.SourceMCP, d.Metadata.Source)
		assert.Equal(t, "weather", d.Metadata.Server)
	}

	assert.Equal(t, StateReady, session.Start(context.Background()))
	assert.EqualValues(t, 1, connects.Load())
}

func TestSession_CallToolThroughRegistry(t *testing.T) {
	registry := tool.NewRegistry()
	session := NewSession(inMemoryConnector(t, weatherServer(), nil), registry, SessionOptions{Server: "weather"})
	t.Cleanup(func() { _ = session.Stop() })
	require.Equal(t, StateReady, session.Start(context.Background()))

	runner := tool.NewRunner(registry.Snapshot())

	result, err := runner.Invoke(context.Background(), "query_weather", `{"city":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Paris", "temperature": 18.5, "description": "clear sky"}, result.Content)

	result, err = runner.Invoke(context.Background(), "stats", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"calls": float64(3)}, result.Content)

	_, err = runner.Invoke(context.Background(), "query_weather", `{"city":"Atlantis"}`)
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "city not found", toolErr.Message)
	assert.ErrorIs(t, err, relayErrors.ErrToolExecution)
}

func TestSession_ConnectFailureLeavesFailed(t *testing.T) {
	var connects atomic.Int32
	connector := NewSDKConnector(testImpl, func() (mcpsdk.Transport, error) {
		connects.Add(1)
		return nil, errors.New("spawn failed")
	})
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.Entry{
		Descriptor: tool.ToolDescriptor{Name: "stale"},
		Handler: tool.HandlerFunc(func(context.Context, json.RawMessage) (any, error) {
			return nil, nil
		}),
	}))
	session := NewSession(connector, registry, SessionOptions{})

	assert.Equal(t, StateFailed, session.Start(context.Background()))
	assert.Equal(t, StateFailed, session.Start(context.Background()))
	assert.EqualValues(t, 1, connects.Load())
	assert.ErrorContains(t, session.Err(), "spawn failed")
	assert.Equal(t, 0, registry.Snapshot().Len())

	_, err := session.CallTool(context.Background(), "stale", nil)
	assert.ErrorIs(t, err, relayErrors.ErrSessionUnavailable)
	assert.NoError(t, session.Stop())
}

type fakeConn struct {
	tools   []*mcpsdk.Tool
	closed  atomic.Int32
	pingErr error
}

func (c *fakeConn) ListTools(context.Context) ([]*mcpsdk.Tool, error) { return c.tools, nil }
func (c *fakeConn) CallTool(context.Context, string, json.RawMessage) (*mcpsdk.CallToolResult, error) {
	return &mcpsdk.CallToolResult{}, nil
}
func (c *fakeConn) Ping(context.Context) error { return c.pingErr }
func (c *fakeConn) Close() error {
	c.closed.Add(1)
	return nil
}

type fakeConnector struct{ conn *fakeConn }

func (f fakeConnector) Connect(context.Context) (Conn, error) { return f.conn, nil }

func TestSession_MalformedToolListFails(t *testing.T) {
	tests := []struct {
		name  string
		tools []*mcpsdk.Tool
	}{
		{name: "duplicate names", tools: []*mcpsdk.Tool{{Name: "a"}, {Name: "a"}}},
		{name: "missing name", tools: []*mcpsdk.Tool{{Name: "a"}, {Description: "anonymous"}}},
		{name: "nil entry", tools: []*mcpsdk.Tool{nil}},
		{name: "schema not an object", tools: []*mcpsdk.Tool{{Name: "a", InputSchema: []string{"x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &fakeConn{tools: tt.tools}
			registry := tool.NewRegistry()
			session := NewSession(fakeConnector{conn: conn}, registry, SessionOptions{})

			assert.Equal(t, StateFailed, session.Start(context.Background()))
			assert.Error(t, session.Err())
			assert.Equal(t, 0, registry.Snapshot().Len())
			assert.EqualValues(t, 1, conn.closed.Load())
		})
	}
}

func TestSession_StopIsIdempotent(t *testing.T) {
	conn := &fakeConn{tools: []*mcpsdk.Tool{{Name: "a"}}}
	registry := tool.NewRegistry()
	session := NewSession(fakeConnector{conn: conn}, registry, SessionOptions{})
	require.Equal(t, StateReady, session.Start(context.Background()))

	require.NoError(t, session.Stop())
	require.NoError(t, session.Stop())
	assert.EqualValues(t, 1, conn.closed.Load())
	assert.Equal(t, StateDisconnected, session.State())
	assert.Equal(t, 0, registry.Snapshot().Len())
}

func TestSession_StopBeforeStartPreventsConnect(t *testing.T) {
	conn := &fakeConn{}
	session := NewSession(fakeConnector{conn: conn}, nil, SessionOptions{})

	require.NoError(t, session.Stop())
	assert.Equal(t, StateDisconnected, session.Start(context.Background()))
	assert.EqualValues(t, 0, conn.closed.Load())
}

func TestSession_PingRecordsStatus(t *testing.T) {
	conn := &fakeConn{}
	session := NewSession(fakeConnector{conn: conn}, nil, SessionOptions{})
	assert.ErrorIs(t, session.Ping(context.Background()), relayErrors.ErrSessionUnavailable)
	assert.Nil(t, session.LastPing())

	require.Equal(t, StateReady, session.Start(context.Background()))
	require.NoError(t, session.Ping(context.Background()))
	require.NotNil(t, session.LastPing())
	assert.True(t, session.LastPing().OK())

	conn.pingErr = errors.New("broken pipe")
	pinger, err := NewPinger(session, "@every 1h", time.Second)
	require.NoError(t, err)
	pinger.Tick()
	assert.Equal(t, "broken pipe", session.LastPing().Error)
	assert.Equal(t, StateReady, session.State())
	assert.NoError(t, pinger.Stop(context.Background()))
}

func TestNewPinger_RejectsBadSchedule(t *testing.T) {
	_, err := NewPinger(NewSession(nil, nil, SessionOptions{}), "whenever", time.Second)
	assert.Error(t, err)
}

func TestResultContent(t *testing.T) {
	got, err := ResultContent("t", &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "sunny"}}})
	require.NoError(t, err)
	assert.Equal(t, "sunny", got)

	got, err = ResultContent("t", &mcpsdk.CallToolResult{Content: []mcpsdk.Content{
		&mcpsdk.TextContent{Text: "line one"},
		&mcpsdk.TextContent{Text: "line two"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)

	got, err = ResultContent("t", &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: `[1, 2]`}}})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2)}, got)

	got, err = ResultContent("t", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
