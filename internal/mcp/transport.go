package mcp

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/harunnryd/mcprelay/internal/pathutil"

	"github.com/google/shlex"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type TransportKind string

const (
	TransportStdio      TransportKind = "stdio"
	TransportSSE        TransportKind = "sse"
	TransportStreamable TransportKind = "streamable"
)

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

// TransportSpec is a parsed mcp.transport setting.
type TransportSpec struct {
	Kind     TransportKind
	Command  []string
	Endpoint string
}

// ParseTransport understands:
//
//	stdio://python main.py     spawn a child process and speak over its stdio
//	sse://host:port/sse        legacy SSE endpoint
//	http+sse://host/sse        same, explicit scheme
//	http(s)://host/mcp         streamable HTTP
//	python main.py             bare command line, stdio
func ParseTransport(spec string) (TransportSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return TransportSpec{}, fmt.Errorf("transport spec is empty")
	}

	lowered := strings.ToLower(spec)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return parseCommand(spec[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		endpoint, err := normalizeEndpoint(spec[len(sseSchemePrefix):], true)
		if err != nil {
			return TransportSpec{}, fmt.Errorf("invalid SSE endpoint: %w", err)
		}
		return TransportSpec{Kind: TransportSSE, Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http+sse://"), strings.HasPrefix(lowered, "https+sse://"):
		base, rest, _ := strings.Cut(spec, "+")
		_, rest, _ = strings.Cut(rest, "://")
		endpoint, err := normalizeEndpoint(strings.ToLower(base)+"://"+rest, false)
		if err != nil {
			return TransportSpec{}, fmt.Errorf("invalid SSE endpoint: %w", err)
		}
		return TransportSpec{Kind: TransportSSE, Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		endpoint, err := normalizeEndpoint(spec, false)
		if err != nil {
			return TransportSpec{}, fmt.Errorf("invalid HTTP endpoint: %w", err)
		}
		return TransportSpec{Kind: TransportStreamable, Endpoint: endpoint}, nil
	}

	return parseCommand(spec)
}

func parseCommand(line string) (TransportSpec, error) {
	parts, err := shlex.Split(strings.TrimSpace(line))
	if err != nil {
		return TransportSpec{}, fmt.Errorf("parse stdio command: %w", err)
	}
	if len(parts) == 0 {
		return TransportSpec{}, fmt.Errorf("stdio command is empty")
	}
	return TransportSpec{Kind: TransportStdio, Command: parts}, nil
}

func (s TransportSpec) String() string {
	if s.Kind == TransportStdio {
		return string(s.Kind) + "://" + strings.Join(s.Command, " ")
	}
	return string(s.Kind) + " " + s.Endpoint
}

// Build creates the go-sdk transport. The stdio child process is not bound
// to any context; it lives until the session is closed.
func (s TransportSpec) Build(workdir string) (mcpsdk.Transport, error) {
	switch s.Kind {
	case TransportStdio:
		args, err := pathutil.ExpandArgs(s.Command)
		if err != nil {
			return nil, err
		}
		// #nosec G204 -- command comes from operator configuration
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = workdir
		cmd.Stderr = os.Stderr
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	case TransportSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: s.Endpoint}, nil
	case TransportStreamable:
		return &mcpsdk.StreamableClientTransport{Endpoint: s.Endpoint}, nil
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", s.Kind)
	}
}

func normalizeEndpoint(raw string, guessScheme bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if guessScheme && !strings.Contains(raw, "://") {
		raw = "http://" + raw
		if u, err := url.Parse(raw); err == nil && !isLoopback(u.Hostname()) {
			raw = "https://" + strings.TrimPrefix(raw, "http://")
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
