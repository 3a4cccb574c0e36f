package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	callErr   error
	readErr   error
	lastTool  string
	lastURI   string
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	f.lastTool = name
	if f.callErr != nil {
		return nil, f.callErr
	}
	return &mcp.CallToolResult{}, nil
}

func (f *fakeCaller) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	f.lastURI = uri
	if f.readErr != nil {
		return nil, f.readErr
	}
	return &mcp.ReadResourceResult{}, nil
}

func (f *fakeCaller) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []api.Event
}

func (f *fakeRecorder) RecordEvent(e api.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func newTestCatalog() *catalog.Catalog {
	c := catalog.New()
	c.UpdateSession("alpha", session.Inventory{
		Tools:     []session.ToolInfo{{Name: "search"}},
		Resources: []session.ResourceInfo{{URI: "doc.md"}},
		Prompts:   []session.PromptInfo{{Name: "summarize"}},
	})
	return c
}

func TestCallToolForwardsAndRecordsSuccess(t *testing.T) {
	caller := &fakeCaller{}
	rec := &fakeRecorder{}
	d := New(newTestCatalog(), func(name string) (Caller, bool) {
		if name == "alpha" {
			return caller, true
		}
		return nil, false
	}, rec)

	_, err := d.CallTool(context.Background(), "alpha.search", map[string]any{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "search", caller.lastTool)

	require.Len(t, rec.events, 1)
	assert.Equal(t, api.EventToolExecution, rec.events[0].Kind)
	payload := rec.events[0].Payload.(api.ToolExecutionPayload)
	assert.True(t, payload.Success)
	assert.Equal(t, "alpha", payload.ServerName)
}

func TestCallToolRecordsFailure(t *testing.T) {
	caller := &fakeCaller{callErr: fmt.Errorf("boom")}
	rec := &fakeRecorder{}
	d := New(newTestCatalog(), func(name string) (Caller, bool) { return caller, true }, rec)

	_, err := d.CallTool(context.Background(), "alpha.search", nil)
	require.Error(t, err)

	require.Len(t, rec.events, 1)
	payload := rec.events[0].Payload.(api.ToolExecutionPayload)
	assert.False(t, payload.Success)
	assert.Equal(t, "boom", payload.Error)
}

func TestCallToolUnknownPrefixIsNotFound(t *testing.T) {
	d := New(newTestCatalog(), func(name string) (Caller, bool) { return nil, false }, nil)

	_, err := d.CallTool(context.Background(), "ghost.nope", nil)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestCallToolServerDisconnected(t *testing.T) {
	d := New(newTestCatalog(), func(name string) (Caller, bool) { return nil, false }, nil)

	_, err := d.CallTool(context.Background(), "alpha.search", nil)
	require.Error(t, err)
	assert.Equal(t, api.KindUpstreamUnavailable, api.KindOf(err))
}

func TestReadResourceForwardsAndRecords(t *testing.T) {
	caller := &fakeCaller{}
	rec := &fakeRecorder{}
	d := New(newTestCatalog(), func(name string) (Caller, bool) { return caller, true }, rec)

	_, err := d.ReadResource(context.Background(), "mcp://alpha/doc.md")
	require.NoError(t, err)
	assert.Equal(t, "doc.md", caller.lastURI)
	require.Len(t, rec.events, 1)
	assert.Equal(t, api.EventResourceAccess, rec.events[0].Kind)
}

func TestGetPromptForwardsWithoutEvent(t *testing.T) {
	caller := &fakeCaller{}
	rec := &fakeRecorder{}
	d := New(newTestCatalog(), func(name string) (Caller, bool) { return caller, true }, rec)

	_, err := d.GetPrompt(context.Background(), "alpha.summarize", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestListOperationsServeFromCatalog(t *testing.T) {
	d := New(newTestCatalog(), nil, nil)

	assert.Len(t, d.ListTools(), 1)
	assert.Len(t, d.ListResources(), 1)
	assert.Len(t, d.ListPrompts(), 1)
}

func TestPingAlwaysSucceeds(t *testing.T) {
	d := New(newTestCatalog(), nil, nil)
	assert.NoError(t, d.Ping(context.Background()))
}
