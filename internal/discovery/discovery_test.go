package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, doc any) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestDiscovery(t *testing.T) (*Discovery, string) {
	t.Helper()
	home := t.TempDir()
	manual := filepath.Join(home, "manual-src")
	return New(home, manual), home
}

// fakePublisher records every event handed to it, letting tests assert on
// what Discovery put on the Event Bus without a real bus.
type fakePublisher struct {
	events []api.Event
}

func (f *fakePublisher) Publish(event api.Event) { f.events = append(f.events, event) }

func TestScanPublishesConfigErrorForInvalidDeclaration(t *testing.T) {
	d, home := newTestDiscovery(t)
	pub := &fakePublisher{}
	d.SetPublisher(pub)

	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{
			"no-command": map[string]any{},
		},
	})

	_, _, err := d.Scan()
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, api.EventServerEvent, pub.events[0].Kind)
	payload, ok := pub.events[0].Payload.(api.ServerEventPayload)
	require.True(t, ok)
	assert.Equal(t, "no-command", payload.ServerName)
	assert.Equal(t, api.KindConfigInvalid, payload.ErrorKind)
	assert.NotEmpty(t, payload.Error)
}

func TestScanPublishesConfigErrorForDroppedDuplicate(t *testing.T) {
	d, home := newTestDiscovery(t)
	pub := &fakePublisher{}
	d.SetPublisher(pub)

	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "cursor-cmd"}},
	})
	writeJSON(t, filepath.Join(home, ".windsurf", "mcp_servers.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "windsurf-cmd"}},
	})

	_, dropped, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, dropped, 1)

	require.Len(t, pub.events, 1)
	assert.Equal(t, api.EventServerEvent, pub.events[0].Kind)
	payload, ok := pub.events[0].Payload.(api.ServerEventPayload)
	require.True(t, ok)
	assert.Equal(t, "alpha", payload.ServerName)
	assert.Equal(t, api.KindConfigInvalid, payload.ErrorKind)
	assert.Contains(t, payload.Error, "duplicate, lower precedence dropped")
}

func TestScanAggregatesFromCursor(t *testing.T) {
	d, home := newTestDiscovery(t)
	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{
			"alpha": map[string]any{"command": "echo-tool"},
		},
	})

	decls, dropped, err := d.Scan()
	require.NoError(t, err)
	require.Empty(t, dropped)
	require.Len(t, decls, 1)
	assert.Equal(t, "alpha", decls[0].Name)
	assert.Equal(t, api.SourceCursor, decls[0].Source)
	assert.Equal(t, api.TransportStdio, decls[0].TransportHint)
	assert.True(t, decls[0].Enabled)
}

func TestScanSkipsMalformedFileWithoutAborting(t *testing.T) {
	d, home := newTestDiscovery(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".cursor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".cursor", "mcp.json"), []byte("{not json"), 0o644))
	writeJSON(t, filepath.Join(home, ".windsurf", "mcp_servers.json"), map[string]any{
		"mcpServers": map[string]any{"beta": map[string]any{"command": "beta-bin"}},
	})

	decls, _, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "beta", decls[0].Name)
}

func TestScanDropsInvalidDeclarations(t *testing.T) {
	d, home := newTestDiscovery(t)
	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{
			"no-command": map[string]any{}, // stdio hint inferred, but no command
		},
	})

	decls, _, err := d.Scan()
	require.NoError(t, err)
	assert.Empty(t, decls)
}

func TestCollisionPrecedenceCursorBeatsWindsurf(t *testing.T) {
	d, home := newTestDiscovery(t)
	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "cursor-cmd"}},
	})
	writeJSON(t, filepath.Join(home, ".windsurf", "mcp_servers.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "windsurf-cmd"}},
	})

	decls, dropped, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "cursor-cmd", decls[0].Command)
	assert.Equal(t, api.SourceCursor, decls[0].Source)

	require.Len(t, dropped, 1)
	assert.Equal(t, api.SourceCursor, dropped[0].WinningSource)
	assert.Equal(t, api.SourceWindsurf, dropped[0].DroppedSource)
}

func TestManualBeatsEveryIDESource(t *testing.T) {
	d, home := newTestDiscovery(t)
	writeJSON(t, filepath.Join(home, ".cursor", "mcp.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "cursor-cmd"}},
	})
	require.NoError(t, os.MkdirAll(filepath.Join(home, "manual-src"), 0o755))
	writeJSON(t, filepath.Join(home, "manual-src", "manual.json"), map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "manual-cmd"}},
	})

	decls, _, err := d.Scan()
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "manual-cmd", decls[0].Command)
}

func TestReconcileReportsAddedChangedRemoved(t *testing.T) {
	d, home := newTestDiscovery(t)
	cursorPath := filepath.Join(home, ".cursor", "mcp.json")
	writeJSON(t, cursorPath, map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "v1"}},
	})

	result, _, err := d.Reconcile()
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
	assert.Empty(t, result.Changed)
	assert.Empty(t, result.Removed)

	// No-op reconciliation.
	result, _, err = d.Reconcile()
	require.NoError(t, err)
	assert.True(t, result.IsNoop())

	// Change the command -> Changed.
	writeJSON(t, cursorPath, map[string]any{
		"mcpServers": map[string]any{"alpha": map[string]any{"command": "v2"}},
	})
	result, _, err = d.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Len(t, result.Changed, 1)
	assert.Empty(t, result.Removed)

	// Remove the file entirely -> Removed.
	require.NoError(t, os.Remove(cursorPath))
	result, _, err = d.Reconcile()
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Changed)
	assert.Len(t, result.Removed, 1)
}

func TestWriteManualIsAtomicAndTriggersReconcile(t *testing.T) {
	d, _ := newTestDiscovery(t)

	result, _, err := d.WriteManual(map[string]any{
		"mcpServers": map[string]any{"gamma": map[string]any{"command": "gamma-bin"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)

	doc, err := d.ReadManual()
	require.NoError(t, err)
	servers, ok := doc["mcpServers"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, servers, "gamma")
}

func TestConfigRoundTripIsNoop(t *testing.T) {
	d, _ := newTestDiscovery(t)

	_, _, err := d.WriteManual(map[string]any{
		"mcpServers": map[string]any{"delta": map[string]any{"command": "delta-bin"}},
	})
	require.NoError(t, err)

	doc, err := d.ReadManual()
	require.NoError(t, err)

	result, _, err := d.WriteManual(doc)
	require.NoError(t, err)
	assert.True(t, result.IsNoop())
}
