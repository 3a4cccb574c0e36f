package httpapi

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/discovery"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/eventbus"
	"github.com/mcpportal/gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsStreamSendsInitialStatusFirst(t *testing.T) {
	reg := registry.New(nil, nil)
	cat := catalog.New()
	bus := eventbus.New()
	reg.SetPublisher(bus)
	reg.Upsert(api.ServerDecl{Name: "alpha", TransportHint: api.TransportStdio, Command: "foo"})

	disc := discovery.New(t.TempDir(), t.TempDir())
	lookup := func(name string) (dispatch.Caller, bool) { return nil, false }
	disp := dispatch.New(cat, lookup, reg)

	handler := New(reg, cat, disp, bus, disc, nil, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, string(api.EventInitialStatus))
	assert.Contains(t, line, "alpha")
}

func TestEventsStreamForwardsPublishedEvents(t *testing.T) {
	reg := registry.New(nil, nil)
	cat := catalog.New()
	bus := eventbus.New()
	reg.SetPublisher(bus)

	disc := discovery.New(t.TempDir(), t.TempDir())
	lookup := func(name string) (dispatch.Caller, bool) { return nil, false }
	disp := dispatch.New(cat, lookup, reg)

	handler := New(reg, cat, disp, bus, disc, nil, nil)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	_, err = reader.ReadString('\n') // drain initial_status frame
	require.NoError(t, err)
	_, err = reader.ReadString('\n') // drain trailing blank line
	require.NoError(t, err)

	// Give the SSE handler time to register its subscription before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(api.Event{Kind: api.EventHeartbeat})

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, string(api.EventHeartbeat))
}
