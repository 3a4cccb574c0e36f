package upstream

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// SSEClient opens an SSE stream to a URL; outbound frames are POSTed to the
// same URL. The server's Last-Event-ID is not honored on reconnect per
// SPEC_FULL.md §4.3 and spec.md's Open Question decision (see DESIGN.md).
type SSEClient struct {
	base
	url     string
	headers map[string]string
}

// NewSSEClient builds an unconnected SSE carrier.
func NewSSEClient(url string, headers map[string]string) *SSEClient {
	return &SSEClient{url: url, headers: headers}
}

func (c *SSEClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var opts []transport.ClientOption
	if len(c.headers) > 0 {
		opts = append(opts, transport.WithHeaders(c.headers))
	}

	mcpClient, err := client.NewSSEMCPClient(c.url, opts...)
	if err != nil {
		return fmt.Errorf("spawn_failed: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("transport_error: %w", err)
	}
	if _, err := mcpClient.Initialize(ctx, initializeRequest()); err != nil {
		mcpClient.Close()
		return fmt.Errorf("handshake_failed: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

func (c *SSEClient) Close() error { return c.closeClient() }

func (c *SSEClient) ListTools(ctx context.Context) ([]mcp.Tool, error) { return c.listTools(ctx) }

func (c *SSEClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

func (c *SSEClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return c.listResources(ctx)
}

func (c *SSEClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return c.readResource(ctx, uri)
}

func (c *SSEClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) { return c.listPrompts(ctx) }

func (c *SSEClient) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	return c.getPrompt(ctx, name, args)
}

func (c *SSEClient) Ping(ctx context.Context) error { return c.ping(ctx) }
