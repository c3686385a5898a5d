// Package toolclient implements the process-wide tool client
// multiplexer, lazily opened server sessions, and a single event-loop
// worker that invocations are submitted to so synchronous agent code
// can block on a completion handle.
//
// Session is a direct adaptation of mcp.Client (internal/mcp/client.go):
// same mcp-go SDK wrapping, same connect/list/call/close shape,
// renamed to this package's vocabulary.
package toolclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdk_client "github.com/mark3labs/mcp-go/client"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
)

// ServerSpec is the static startup specification for one tool server,
// built from a role's tool-server config.
type ServerSpec struct {
	Name        string
	Transport   string // "stdio" | "sse"
	Command     string
	Args        []string
	Env         []string
	URL         string
	Description string // use_guide.description
}

// CapabilityInfo describes one tool a server exposes — the unit this
// runtime calls a "capability".
type CapabilityInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Session wraps a live connection to one tool server.
type Session struct {
	mu    sync.RWMutex
	spec  ServerSpec
	inner sdk_client.MCPClient
}

// NewSession creates an unconnected Session for spec. Call Connect
// before ListCapabilities or Invoke.
func NewSession(spec ServerSpec) *Session {
	return &Session{spec: spec}
}

// Connect establishes the transport connection and performs the MCP
// initialize handshake.
func (s *Session) Connect(ctx context.Context) error {
	var inner sdk_client.MCPClient

	switch s.spec.Transport {
	case "stdio":
		cli, err := sdk_client.NewStdioMCPClient(s.spec.Command, s.spec.Env, s.spec.Args...)
		if err != nil {
			return fmt.Errorf("toolclient: start stdio server %q: %w", s.spec.Name, err)
		}
		inner = cli

	case "sse":
		cli, err := sdk_client.NewSSEMCPClient(s.spec.URL)
		if err != nil {
			return fmt.Errorf("toolclient: create SSE client %q: %w", s.spec.Name, err)
		}
		if err := cli.Start(ctx); err != nil {
			return fmt.Errorf("toolclient: start SSE client %q: %w", s.spec.Name, err)
		}
		inner = cli

	default:
		return fmt.Errorf("toolclient: unknown transport %q for server %q", s.spec.Transport, s.spec.Name)
	}

	_, err := inner.Initialize(ctx, sdk_mcp.InitializeRequest{
		Params: sdk_mcp.InitializeParams{
			ProtocolVersion: sdk_mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdk_mcp.Implementation{
				Name:    "allen",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		return fmt.Errorf("toolclient: initialize server %q: %w", s.spec.Name, err)
	}

	s.mu.Lock()
	s.inner = inner
	s.mu.Unlock()
	return nil
}

// ListCapabilities returns metadata for every tool this server exposes.
func (s *Session) ListCapabilities(ctx context.Context) ([]CapabilityInfo, error) {
	s.mu.RLock()
	inner := s.inner
	s.mu.RUnlock()
	if inner == nil {
		return nil, fmt.Errorf("toolclient: session %q not connected", s.spec.Name)
	}

	result, err := inner.ListTools(ctx, sdk_mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("toolclient: list capabilities %q: %w", s.spec.Name, err)
	}

	out := make([]CapabilityInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		out = append(out, CapabilityInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

// Invoke calls the named capability with args and returns its
// concatenated text content. A server-reported IsError surfaces as a
// non-nil error.
func (s *Session) Invoke(ctx context.Context, capability string, args map[string]any) (string, error) {
	s.mu.RLock()
	inner := s.inner
	s.mu.RUnlock()
	if inner == nil {
		return "", fmt.Errorf("toolclient: session %q not connected", s.spec.Name)
	}

	req := sdk_mcp.CallToolRequest{}
	req.Params.Name = capability
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("toolclient: invoke %q on %q: %w", capability, s.spec.Name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(sdk_mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if result.IsError {
		return "", fmt.Errorf("toolclient: capability %q returned error: %s", capability, text)
	}
	return text, nil
}

// Close terminates the connection and releases resources.
func (s *Session) Close() error {
	s.mu.Lock()
	inner := s.inner
	s.inner = nil
	s.mu.Unlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}
