package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/mcprelay/internal/tool"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpWeatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := weatherServer()
	getServer := func(*http.Request) *mcpsdk.Server { return server }

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpsdk.NewStreamableHTTPHandler(getServer, nil))
	mux.Handle("/sse", mcpsdk.NewSSEHandler(getServer, nil))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_HTTPTransportsOutliveConnectTimeout(t *testing.T) {
	srv := httpWeatherServer(t)

	transports := map[string]string{
		"sse":        "sse://" + strings.TrimPrefix(srv.URL, "http://") + "/sse",
		"streamable": srv.URL + "/mcp",
	}
	for name, raw := range transports {
		t.Run(name, func(t *testing.T) {
			spec, err := ParseTransport(raw)
			require.NoError(t, err)

			session := NewSession(NewSpecConnector(testImpl, spec, ""), tool.NewRegistry(), SessionOptions{
				Server:         "weather",
				ConnectTimeout: 30 * time.Second,
			})
			t.Cleanup(func() { _ = session.Stop() })
			require.Equal(t, StateReady, session.Start(context.Background()))

			time.Sleep(200 * time.Millisecond)

			content, err := session.CallTool(context.Background(), "query_weather", json.RawMessage(`{"city":"Paris"}`))
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"city": "Paris", "temperature": 18.5, "description": "clear sky"}, content)
			assert.Equal(t, StateReady, session.State())
		})
	}
}

// slowConnector hands out conn only after release is closed.
type slowConnector struct {
	conn    *fakeConn
	release chan struct{}
	gotCtx  chan context.Context
}

func (c *slowConnector) Connect(ctx context.Context) (Conn, error) {
	c.gotCtx <- ctx
	<-c.release
	return c.conn, nil
}

func TestSession_HandshakeTimeoutFailsAndClosesLateConn(t *testing.T) {
	connector := &slowConnector{
		conn:    &fakeConn{},
		release: make(chan struct{}),
		gotCtx:  make(chan context.Context, 1),
	}
	session := NewSession(connector, nil, SessionOptions{ConnectTimeout: 50 * time.Millisecond})

	assert.Equal(t, StateFailed, session.Start(context.Background()))
	assert.ErrorIs(t, session.Err(), context.DeadlineExceeded)

	connCtx := <-connector.gotCtx
	close(connector.release)
	assert.Eventually(t, func() bool { return connector.conn.closed.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Error(t, connCtx.Err())
}

func TestSession_ConnectionContextEndsOnStop(t *testing.T) {
	connector := &slowConnector{
		conn:    &fakeConn{},
		release: make(chan struct{}),
		gotCtx:  make(chan context.Context, 1),
	}
	close(connector.release)
	session := NewSession(connector, nil, SessionOptions{ConnectTimeout: time.Second})

	require.Equal(t, StateReady, session.Start(context.Background()))
	connCtx := <-connector.gotCtx
	assert.NoError(t, connCtx.Err())

	require.NoError(t, session.Stop())
	assert.Error(t, connCtx.Err())
}
