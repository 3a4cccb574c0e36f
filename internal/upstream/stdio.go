package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpportal/gateway/pkg/logging"
)

// stderrRingSize is the size of the retained tail of a child's stderr
// (4 KiB), exposed through Stderr.
const stderrRingSize = 4 * 1024

// StdioClient spawns the normalized command and frames stdout line-by-line
// as newline-delimited JSON, via mark3labs/mcp-go's stdio transport.
type StdioClient struct {
	base
	command string
	args    []string
	env     []string

	stderrMu  sync.Mutex
	stderrTail *ring
}

// NewStdioClient builds an unconnected stdio carrier for the normalized
// spawn tuple (command path, argv, and a fully-merged env slice).
func NewStdioClient(command string, args []string, env []string) *StdioClient {
	return &StdioClient{command: command, args: args, env: env, stderrTail: newRing(stderrRingSize)}
}

// Initialize spawns the child and performs the MCP initialize/initialized
// handshake.
func (c *StdioClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	logging.Debug("StdioClient", "spawning %s %v", c.command, c.args)
	mcpClient, err := client.NewStdioMCPClient(c.command, c.env, c.args...)
	if err != nil {
		return fmt.Errorf("spawn_failed: %w", err)
	}

	if concrete, ok := mcpClient.(*client.Client); ok {
		if stderr, ok := client.GetStderr(concrete); ok {
			go c.drainStderr(stderr)
		}
	}

	initCtx, cancel := initTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := mcpClient.Initialize(initCtx, initializeRequest()); err != nil {
		closeErr := mcpClient.Close()
		if closeErr != nil {
			logging.Debug("StdioClient", "error closing failed client for %s: %v", c.command, closeErr)
		}
		return fmt.Errorf("handshake_failed: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

func (c *StdioClient) drainStderr(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.stderrMu.Lock()
			c.stderrTail.Write(buf[:n])
			c.stderrMu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Stderr implements StderrSource, returning the retained tail.
func (c *StdioClient) Stderr() (io.Reader, bool) {
	c.stderrMu.Lock()
	defer c.stderrMu.Unlock()
	return bytes.NewReader(c.stderrTail.Bytes()), true
}

func (c *StdioClient) Close() error { return c.closeClient() }

func (c *StdioClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return c.listTools(ctx)
}

func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

func (c *StdioClient) ListResources(ctx context.Context) ([]mcp.Resource, error) {
	return c.listResources(ctx)
}

func (c *StdioClient) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	return c.readResource(ctx, uri)
}

func (c *StdioClient) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	return c.listPrompts(ctx)
}

func (c *StdioClient) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	return c.getPrompt(ctx, name, args)
}

func (c *StdioClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}
