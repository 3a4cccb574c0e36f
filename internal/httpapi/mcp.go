package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/eventbus"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// mcpHandler is the unified /api/v1/mcp endpoint: one mark3labs/mcp-go
// server whose tool/resource/prompt set mirrors the Aggregator's catalog,
// with every call forwarded through the Dispatcher. Its capability set is
// resynced whenever a server_event, server_reconnection or heartbeat crosses
// the Event Bus,
// mirroring the teacher's updateCapabilities-on-registry-change pattern.
type mcpHandler struct {
	http.Handler

	mcp  *mcpserver.MCPServer
	disp *dispatch.Dispatcher

	mu        sync.Mutex
	tools     map[string]struct{}
	resources map[string]struct{}
	prompts   map[string]struct{}
}

func newMCPHandler(disp *dispatch.Dispatcher, bus *eventbus.Bus) *mcpHandler {
	srv := mcpserver.NewMCPServer(
		"mcp-portal-gateway",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
	)

	h := &mcpHandler{
		mcp:       srv,
		disp:      disp,
		tools:     make(map[string]struct{}),
		resources: make(map[string]struct{}),
		prompts:   make(map[string]struct{}),
	}
	h.Handler = mcpserver.NewStreamableHTTPServer(srv)

	h.sync()
	if bus != nil {
		go h.watch(bus)
	}
	return h
}

// watch resyncs the capability set on every server_event,
// server_reconnection and heartbeat. Its context is never canceled, so it
// runs for the life of the process.
func (h *mcpHandler) watch(bus *eventbus.Bus) {
	sub := bus.Subscribe()
	defer sub.Close()

	ctx := context.Background()
	for {
		event, err := sub.Next(ctx)
		if err != nil {
			return
		}
		switch event.Kind {
		case api.EventServerEvent, api.EventServerReconnection, api.EventHeartbeat:
			h.sync()
		}
	}
}

// sync diffs the Aggregator's current catalog against what this MCP server
// has registered and applies the minimal set of adds/removes.
func (h *mcpHandler) sync() {
	h.mu.Lock()
	defer h.mu.Unlock()

	toolDescs := h.disp.ListTools()
	wantTools := make(map[string]struct{}, len(toolDescs))
	var addTools []mcpserver.ServerTool
	for _, t := range toolDescs {
		wantTools[t.PrefixedName] = struct{}{}
		if _, present := h.tools[t.PrefixedName]; !present {
			addTools = append(addTools, h.toolEntry(t))
		}
	}
	var removeTools []string
	for name := range h.tools {
		if _, present := wantTools[name]; !present {
			removeTools = append(removeTools, name)
		}
	}
	if len(removeTools) > 0 {
		h.mcp.DeleteTools(removeTools...)
	}
	if len(addTools) > 0 {
		h.mcp.AddTools(addTools...)
	}
	h.tools = wantTools

	resDescs := h.disp.ListResources()
	wantResources := make(map[string]struct{}, len(resDescs))
	var addResources []mcpserver.ServerResource
	for _, r := range resDescs {
		wantResources[r.PrefixedURI] = struct{}{}
		if _, present := h.resources[r.PrefixedURI]; !present {
			addResources = append(addResources, h.resourceEntry(r))
		}
	}
	for uri := range h.resources {
		if _, present := wantResources[uri]; !present {
			h.mcp.RemoveResource(uri)
		}
	}
	if len(addResources) > 0 {
		h.mcp.AddResources(addResources...)
	}
	h.resources = wantResources

	promptDescs := h.disp.ListPrompts()
	wantPrompts := make(map[string]struct{}, len(promptDescs))
	var addPrompts []mcpserver.ServerPrompt
	for _, p := range promptDescs {
		wantPrompts[p.PrefixedName] = struct{}{}
		if _, present := h.prompts[p.PrefixedName]; !present {
			addPrompts = append(addPrompts, h.promptEntry(p))
		}
	}
	var removePrompts []string
	for name := range h.prompts {
		if _, present := wantPrompts[name]; !present {
			removePrompts = append(removePrompts, name)
		}
	}
	if len(removePrompts) > 0 {
		h.mcp.DeletePrompts(removePrompts...)
	}
	if len(addPrompts) > 0 {
		h.mcp.AddPrompts(addPrompts...)
	}
	h.prompts = wantPrompts
}

func (h *mcpHandler) toolEntry(t api.ToolDescriptor) mcpserver.ServerTool {
	var schema mcp.ToolInputSchema
	if m, ok := t.Parameters.(map[string]any); ok {
		if typ, _ := m["type"].(string); typ != "" {
			schema.Type = typ
		}
		if props, ok := m["properties"].(map[string]any); ok {
			schema.Properties = props
		}
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	name := t.PrefixedName
	return mcpserver.ServerTool{
		Tool: mcp.Tool{
			Name:        name,
			Description: t.Description,
			InputSchema: schema,
		},
		Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := h.disp.CallTool(ctx, name, req.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result, nil
		},
	}
}

func (h *mcpHandler) resourceEntry(r api.ResourceDescriptor) mcpserver.ServerResource {
	uri := r.PrefixedURI
	return mcpserver.ServerResource{
		Resource: mcp.Resource{
			URI:         uri,
			Description: r.Description,
			MIMEType:    r.MimeType,
		},
		Handler: func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			result, err := h.disp.ReadResource(ctx, uri)
			if err != nil {
				return nil, err
			}
			if result == nil {
				return nil, nil
			}
			return result.Contents, nil
		},
	}
}

func (h *mcpHandler) promptEntry(p api.PromptDescriptor) mcpserver.ServerPrompt {
	name := p.PrefixedName
	args := make([]mcp.PromptArgument, len(p.Arguments))
	for i, a := range p.Arguments {
		args[i] = mcp.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required}
	}
	return mcpserver.ServerPrompt{
		Prompt: mcp.Prompt{
			Name:        name,
			Description: p.Description,
			Arguments:   args,
		},
		Handler: func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			margs := make(map[string]any, len(req.Params.Arguments))
			for k, v := range req.Params.Arguments {
				margs[k] = v
			}
			result, err := h.disp.GetPrompt(ctx, name, margs)
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", name, err)
			}
			return result, nil
		},
	}
}
