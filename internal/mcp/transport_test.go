package mcp

import (
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransport(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		kind     TransportKind
		command  []string
		endpoint string
	}{
		{name: "stdio prefix", spec: "stdio://python main.py", kind: TransportStdio, command: []string{"python", "main.py"}},
		{name: "uppercase prefix", spec: "STDIO://uv run weather.py", kind: TransportStdio, command: []string{"uv", "run", "weather.py"}},
		{name: "bare command with quotes", spec: `python "/srv/my tools/main.py" --units metric`, kind: TransportStdio, command: []string{"python", "/srv/my tools/main.py", "--units", "metric"}},
		{name: "sse loopback", spec: "sse://localhost:8001/sse", kind: TransportSSE, endpoint: "http://localhost:8001/sse"},
		{name: "sse remote", spec: "sse://mcp.example.com/sse", kind: TransportSSE, endpoint: "https://mcp.example.com/sse"},
		{name: "http sse hint", spec: "http+sse://127.0.0.1:8001/sse", kind: TransportSSE, endpoint: "http://127.0.0.1:8001/sse"},
		{name: "streamable", spec: "HTTP://localhost:6277/mcp", kind: TransportStreamable, endpoint: "http://localhost:6277/mcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseTransport(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, spec.Kind)
			assert.Equal(t, tt.command, spec.Command)
			assert.Equal(t, tt.endpoint, spec.Endpoint)
		})
	}
}

func TestParseTransport_Invalid(t *testing.T) {
	for _, spec := range []string{"", "stdio://", "sse://", "http://", "sse://ftp://example.com", `python "unterminated`} {
		_, err := ParseTransport(spec)
		assert.Error(t, err, spec)
	}
}

func TestTransportSpecBuild(t *testing.T) {
	spec, err := ParseTransport("stdio://python main.py")
	require.NoError(t, err)

	tr, err := spec.Build("/srv/weather")
	require.NoError(t, err)
	cmdTr, ok := tr.(*mcpsdk.CommandTransport)
	require.True(t, ok, "got %T", tr)
	assert.Equal(t, []string{"python", "main.py"}, cmdTr.Command.Args)
	assert.Equal(t, "/srv/weather", cmdTr.Command.Dir)

	spec, err = ParseTransport("http://localhost:6277/mcp")
	require.NoError(t, err)
	tr, err = spec.Build("")
	require.NoError(t, err)
	assert.IsType(t, &mcpsdk.StreamableClientTransport{}, tr)

	spec, err = ParseTransport("sse://localhost:8001/sse")
	require.NoError(t, err)
	tr, err = spec.Build("")
	require.NoError(t, err)
	assert.IsType(t, &mcpsdk.SSEClientTransport{}, tr)
}
