package upstream

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// StreamableHTTPClient is the supplemented transport_streamable_http
// variant of the http_sse carrier contract (SPEC_FULL.md §4.3): outbound
// requests and inbound streaming share one HTTP/2-friendly connection
// instead of a separate SSE GET and POST pair.
type StreamableHTTPClient struct {
	base
	url     string
	headers map[string]string
}

// NewStreamableHTTPClient builds an unconnected streamable-http carrier.
func NewStreamableHTTPClient(url string, headers map[string]string) *StreamableHTTPClient {
	return &StreamableHTTPClient{url: url, headers: headers}
}

func (c *StreamableHTTPClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	var opts []transport.StreamableHTTPCOption
	if len(c.headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(c.headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(c.url, opts...)
	if err != nil {
		return fmt.Errorf("spawn_failed: %w", err)
	}
	if _, err := mcpClient.Initialize(ctx, initializeRequest()); err != nil {
		mcpClient.Close()
		return fmt.Errorf("handshake_failed: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

func (c *StreamableHTTPClient) Close() error { return c.closeClient() }

func (c *StreamableHTTPClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return c.listTools(ctx)
}

func (c *StreamableHTTPClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

func (c *StreamableHTTPClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return c.listResources(ctx)
}

func (c *StreamableHTTPClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return c.readResource(ctx, uri)
}

func (c *StreamableHTTPClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	return c.listPrompts(ctx)
}

func (c *StreamableHTTPClient) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	return c.getPrompt(ctx, name, args)
}

func (c *StreamableHTTPClient) Ping(ctx context.Context) error { return c.ping(ctx) }
