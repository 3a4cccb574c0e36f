package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/discovery"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/eventbus"
	"github.com/mcpportal/gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*httptest.Server, *registry.Registry, *discovery.Discovery) {
	t.Helper()
	reg := registry.New(nil, nil)
	cat := catalog.New()
	bus := eventbus.New()
	reg.SetPublisher(bus)

	home := t.TempDir()
	manual := t.TempDir()
	disc := discovery.New(home, manual)

	lookup := func(name string) (dispatch.Caller, bool) { return nil, false }
	disp := dispatch.New(cat, lookup, reg)

	var applied []discovery.ReconcileResult
	apply := func(ctx context.Context, result discovery.ReconcileResult) { applied = append(applied, result) }
	reconnect := func(ctx context.Context, name string) error { return nil }

	handler := New(reg, cat, disp, bus, disc, reconnect, apply)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, reg, disc
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestListServersEmpty(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Get(srv.URL + "/api/v1/servers")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Servers []api.ServerStatus `json:"servers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Servers)
}

func TestEnableDisableUnknownServerIsNotFound(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Post(srv.URL+"/api/v1/servers/missing/enable", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEnableKnownServerSucceeds(t *testing.T) {
	srv, reg, _ := newTestRouter(t)
	reg.Upsert(api.ServerDecl{Name: "alpha", TransportHint: api.TransportStdio, Command: "foo", Enabled: false})

	resp, err := http.Post(srv.URL+"/api/v1/servers/alpha/enable", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.True(t, status.Enabled)
}

func TestServerToolsKnownServerSucceeds(t *testing.T) {
	srv, reg, _ := newTestRouter(t)
	reg.Upsert(api.ServerDecl{Name: "alpha", TransportHint: api.TransportStdio, Command: "foo"})

	resp, err := http.Get(srv.URL + "/api/v1/servers/alpha/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfigGetReturnsEmptyDocumentInitially(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Get(srv.URL + "/api/v1/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "mcpServers")
}

func TestConfigPostWritesManualSourceAndReconciles(t *testing.T) {
	srv, reg, _ := newTestRouter(t)

	doc := `{"mcpServers":{"alpha":{"command":"foo","args":[]}}}`
	resp, err := http.Post(srv.URL+"/api/v1/config", "application/json", strings.NewReader(doc))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, data["updated_servers"])

	_, found := reg.Get("alpha")
	assert.False(t, found, "router only applies the reconciliation via apply(); Upsert is the Supervisor's job")
}

func TestConfigPostRejectsMalformedJSON(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Post(srv.URL+"/api/v1/config", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshReturnsDiscoveredCount(t *testing.T) {
	srv, _, _ := newTestRouter(t)
	resp, err := http.Post(srv.URL+"/api/v1/servers/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, data["discovered_count"])
}
