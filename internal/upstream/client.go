package upstream

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client is the carrier contract every transport variant satisfies: a live
// MCP conversation with one upstream, handshake already performed by
// Initialize.
type Client interface {
	Initialize(ctx context.Context) error
	Close() error
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	ListResources(ctx context.Context) ([]mcp.Resource, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)
	GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error)
	Ping(ctx context.Context) error
}

// StderrSource is implemented by carriers that capture a subprocess's
// stderr (the stdio carrier), which retains the last 4 KiB. Session does
// not read it; a session's last error holds only the transport error text.
type StderrSource interface {
	Stderr() (io.Reader, bool)
}

var (
	_ Client = (*StdioClient)(nil)
	_ Client = (*SSEClient)(nil)
	_ Client = (*StreamableHTTPClient)(nil)
)

const protocolVersion = "2024-11-05"

var clientInfo = mcp.Implementation{Name: "mcpportal-gateway", Version: "1.0.0"}

// base holds the state and operations common to every carrier: all MCP
// calls funnel through the embedded mark3labs client after a connectivity
// check.
type base struct {
	mu        sync.RWMutex
	client    client.MCPClient
	connected bool
}

func (b *base) checkConnected() error {
	if !b.connected || b.client == nil {
		return fmt.Errorf("client not connected")
	}
	return nil
}

func (b *base) closeClient() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected || b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.connected = false
	b.client = nil
	return err
}

func (b *base) listTools(ctx context.Context) ([]mcp.Tool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	result, err := b.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	return result.Tools, nil
}

func (b *base) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := b.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}
	return result, nil
}

func (b *base) listResources(ctx context.Context) ([]mcp.Resource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	result, err := b.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("resources/list: %w", err)
	}
	return result.Resources, nil
}

func (b *base) readResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	result, err := b.client.ReadResource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resources/read %s: %w", uri, err)
	}
	return result, nil
}

func (b *base) listPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	result, err := b.client.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("prompts/list: %w", err)
	}
	return result.Prompts, nil
}

func (b *base) getPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return nil, err
	}
	stringArgs := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			stringArgs[k] = s
		} else {
			stringArgs[k] = fmt.Sprintf("%v", v)
		}
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = stringArgs
	result, err := b.client.GetPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("prompts/get %s: %w", name, err)
	}
	return result, nil
}

func (b *base) ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.checkConnected(); err != nil {
		return err
	}
	return b.client.Ping(ctx)
}

func initTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func initializeRequest() mcp.InitializeRequest {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = protocolVersion
	req.Params.ClientInfo = clientInfo
	req.Params.Capabilities = mcp.ClientCapabilities{}
	return req
}
