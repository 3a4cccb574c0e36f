package dispatch

import (
	"context"
	"time"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

var _ Caller = (*session.Session)(nil)

// Caller is the subset of Session a Dispatcher needs to forward one call.
// Kept narrow so tests can substitute a fake without spinning up a real
// transport.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
	GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error)
}

// SessionLookup resolves a server name to its live Caller. It returns false
// if the server is unknown or not currently connected.
type SessionLookup func(serverName string) (Caller, bool)

// EventRecorder is the narrow slice of *registry.Registry a Dispatcher
// needs, kept local to avoid an import cycle between dispatch and registry.
type EventRecorder interface {
	RecordEvent(event api.Event)
}

// Dispatcher is the Dispatcher component: it serves list operations from
// the Aggregator's snapshot and forwards call/read operations to the
// resolved session, emitting an event for each.
type Dispatcher struct {
	catalog  *catalog.Catalog
	sessions SessionLookup
	events   EventRecorder
}

// New constructs a Dispatcher over catalog, resolving sessions via lookup
// and recording tool_execution/resource_access events via events.
func New(cat *catalog.Catalog, lookup SessionLookup, events EventRecorder) *Dispatcher {
	return &Dispatcher{catalog: cat, sessions: lookup, events: events}
}

// ListTools serves tools/list from the Aggregator's snapshot.
func (d *Dispatcher) ListTools() []api.ToolDescriptor { return d.catalog.ListTools() }

// ListResources serves resources/list from the Aggregator's snapshot.
func (d *Dispatcher) ListResources() []api.ResourceDescriptor { return d.catalog.ListResources() }

// ListPrompts serves prompts/list from the Aggregator's snapshot.
func (d *Dispatcher) ListPrompts() []api.PromptDescriptor { return d.catalog.ListPrompts() }

// Ping is local and always succeeds: it answers for the gateway itself, not
// any one upstream.
func (d *Dispatcher) Ping(ctx context.Context) error { return nil }

// CallTool resolves a prefixed tool name, forwards tools/call to the owning
// session with the original name, and records a tool_execution event.
func (d *Dispatcher) CallTool(ctx context.Context, prefixedName string, args map[string]any) (*mcp.CallToolResult, error) {
	server, original, err := d.catalog.ResolveTool(prefixedName)
	if err != nil {
		return nil, err
	}
	caller, ok := d.sessions(server)
	if !ok {
		return nil, api.NewError(api.KindUpstreamUnavailable, "server "+server+" is not connected", nil)
	}

	start := time.Now()
	result, callErr := caller.CallTool(ctx, original, args)
	d.recordToolExecution(server, original, start, callErr)
	return result, callErr
}

// ReadResource resolves a prefixed resource URI, forwards resources/read to
// the owning session with the original URI, and records a resource_access
// event.
func (d *Dispatcher) ReadResource(ctx context.Context, prefixedURI string) (*mcp.ReadResourceResult, error) {
	server, original, err := d.catalog.ResolveResource(prefixedURI)
	if err != nil {
		return nil, err
	}
	caller, ok := d.sessions(server)
	if !ok {
		return nil, api.NewError(api.KindUpstreamUnavailable, "server "+server+" is not connected", nil)
	}

	start := time.Now()
	result, readErr := caller.ReadResource(ctx, original)
	d.recordResourceAccess(server, original, start, readErr)
	return result, readErr
}

// GetPrompt resolves a prefixed prompt name and forwards prompts/get to the
// owning session with the original name.
func (d *Dispatcher) GetPrompt(ctx context.Context, prefixedName string, args map[string]any) (*mcp.GetPromptResult, error) {
	server, original, err := d.catalog.ResolvePrompt(prefixedName)
	if err != nil {
		return nil, err
	}
	caller, ok := d.sessions(server)
	if !ok {
		return nil, api.NewError(api.KindUpstreamUnavailable, "server "+server+" is not connected", nil)
	}
	return caller.GetPrompt(ctx, original, args)
}

func (d *Dispatcher) recordToolExecution(server, original string, start time.Time, callErr error) {
	if d.events == nil {
		return
	}
	payload := api.ToolExecutionPayload{
		ServerName: server,
		Original:   original,
		Success:    callErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if callErr != nil {
		payload.Error = callErr.Error()
	}
	d.events.RecordEvent(api.Event{Kind: api.EventToolExecution, Payload: payload, Timestamp: time.Now()})
}

func (d *Dispatcher) recordResourceAccess(server, original string, start time.Time, readErr error) {
	if d.events == nil {
		return
	}
	payload := api.ResourceAccessPayload{
		ServerName: server,
		Original:   original,
		Success:    readErr == nil,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if readErr != nil {
		payload.Error = readErr.Error()
	}
	d.events.RecordEvent(api.Event{Kind: api.EventResourceAccess, Payload: payload, Timestamp: time.Now()})
}
