package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Conn is an initialized connection to a tool provider.
type Conn interface {
	ListTools(ctx context.Context) ([]*mcpsdk.Tool, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (*mcpsdk.CallToolResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Connector performs transport setup and the initialize handshake.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// TransportFactory builds a fresh transport for each connect attempt.
type TransportFactory func() (mcpsdk.Transport, error)

// SDKConnector connects through the official go-sdk client.
type SDKConnector struct {
	client    *mcpsdk.Client
	transport TransportFactory
}

func NewSDKConnector(impl *mcpsdk.Implementation, transport TransportFactory) *SDKConnector {
	return &SDKConnector{
		client:    mcpsdk.NewClient(impl, nil),
		transport: transport,
	}
}

// NewSpecConnector connects using a parsed transport spec.
func NewSpecConnector(impl *mcpsdk.Implementation, spec TransportSpec, workdir string) *SDKConnector {
	return NewSDKConnector(impl, func() (mcpsdk.Transport, error) {
		return spec.Build(workdir)
	})
}

func (c *SDKConnector) Connect(ctx context.Context) (Conn, error) {
	if c.transport == nil {
		return nil, fmt.Errorf("no transport configured")
	}
	transport, err := c.transport()
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return &sdkConn{session: session}, nil
}

type sdkConn struct {
	session *mcpsdk.ClientSession
}

func (c *sdkConn) ListTools(ctx context.Context) ([]*mcpsdk.Tool, error) {
	var tools []*mcpsdk.Tool
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func (c *sdkConn) CallTool(ctx context.Context, name string, args json.RawMessage) (*mcpsdk.CallToolResult, error) {
	return c.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
}

func (c *sdkConn) Ping(ctx context.Context) error {
	return c.session.Ping(ctx, nil)
}

func (c *sdkConn) Close() error {
	return c.session.Close()
}
