// Package mcpclient adapts mark3labs/mcp-go into the narrow
// open/initialize/call_tool contract spec §6 expects from an MCP client,
// grounded on the manishiitg-mcp-agent-builder-go pkg/mcpclient package
// from the example pack.
package mcpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ServerConfig is the rendered shape of a recipe's `server` mapping
// (mcp step) or one entry of `mcp_servers` (llm_generate step).
type ServerConfig struct {
	Name       string
	Command    string
	Args       []string
	Env        map[string]string
	WorkingDir string
	URL        string
	Headers    map[string]string
}

func (s ServerConfig) isStdio() bool { return s.Command != "" }

func (s ServerConfig) label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.isStdio() {
		return fmt.Sprintf("%s %v", s.Command, s.Args)
	}
	return s.URL
}

// Session wraps one opened, initialized MCP connection.
type Session struct {
	cfg    ServerConfig
	client *client.Client
}

// Open connects to cfg's server, selecting stdio or SSE/HTTP transport per
// §4.4.9 (stdio when `command` is present, else SSE/HTTP via `url`).
func Open(ctx context.Context, cfg ServerConfig) (*Session, error) {
	if cfg.isStdio() {
		return openStdio(cfg)
	}
	return openSSE(ctx, cfg)
}

func openStdio(cfg ServerConfig) (*Session, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: failed to start stdio server %q: %w", cfg.label(), err)
	}
	return &Session{cfg: cfg, client: c}, nil
}

func openSSE(ctx context.Context, cfg ServerConfig) (*Session, error) {
	var opts []transport.ClientOption
	if len(cfg.Headers) > 0 {
		opts = append(opts, transport.WithHeaders(cfg.Headers))
	}

	sseTransport, err := transport.NewSSE(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: failed to create SSE transport for %q: %w", cfg.label(), err)
	}

	c := client.NewClient(sseTransport)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcpclient: failed to start SSE client for %q: %w", cfg.label(), err)
	}
	return &Session{cfg: cfg, client: c}, nil
}

// Initialize performs the MCP handshake. Required before CallTool for
// SSE/HTTP sessions; a no-op (but harmless) for stdio sessions, which
// mcp-go's NewStdioMCPClient already initializes.
func (s *Session) Initialize(ctx context.Context) error {
	if s.cfg.isStdio() {
		return nil
	}
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.client.Initialize(initCtx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "recipeflow",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("mcpclient: initialize failed for %q: %w", s.cfg.label(), err)
	}
	return nil
}

// CallTool invokes name with arguments and returns the result coerced to a
// plain mapping (§4.4.9 step 4: "convert the tool result to a mapping").
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (map[string]interface{}, error) {
	result, err := s.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: arguments,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mcpclient: tool %q failed on %q: %w", name, s.cfg.label(), err)
	}
	return toMap(result), nil
}

// Close releases the session. Safe to call multiple times.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func toMap(result *mcp.CallToolResult) map[string]interface{} {
	texts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return map[string]interface{}{
		"is_error": result.IsError,
		"text":     strings.Join(texts, "\n"),
		"content":  len(result.Content),
	}
}
