package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/discovery"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/eventbus"
	"github.com/mcpportal/gateway/internal/registry"
	"github.com/mcpportal/gateway/pkg/logging"
)

// ReconnectFunc restarts a single server's session, used by the
// /reconnect endpoint. The Router never touches Sessions directly; app
// wiring supplies this as a thin call into the Supervisor.
type ReconnectFunc func(ctx context.Context, name string) error

// ApplyFunc applies a discovery.ReconcileResult against the live session
// set, used after a manual refresh or a config write. App wiring supplies
// this as the Supervisor's Apply method.
type ApplyFunc func(ctx context.Context, result discovery.ReconcileResult)

// Router wires the REST surface, the SSE event stream and the unified MCP
// endpoint over a shared set of components.
type Router struct {
	registry   *registry.Registry
	catalog    *catalog.Catalog
	dispatcher *dispatch.Dispatcher
	bus        *eventbus.Bus
	discovery  *discovery.Discovery
	reconnect  ReconnectFunc
	apply      ApplyFunc
	startedAt  time.Time
}

// New builds the top-level http.Handler for the gateway's management and
// protocol surface.
func New(reg *registry.Registry, cat *catalog.Catalog, disp *dispatch.Dispatcher, bus *eventbus.Bus, disc *discovery.Discovery, reconnect ReconnectFunc, apply ApplyFunc) http.Handler {
	rt := &Router{
		registry:   reg,
		catalog:    cat,
		dispatcher: disp,
		bus:        bus,
		discovery:  disc,
		reconnect:  reconnect,
		apply:      apply,
		startedAt:  time.Now(),
	}
	return rt.mux()
}

func (rt *Router) mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/servers", rt.handleListServers)
	mux.HandleFunc("POST /api/v1/servers/{name}/enable", rt.handleSetEnabled(true))
	mux.HandleFunc("POST /api/v1/servers/{name}/disable", rt.handleSetEnabled(false))
	mux.HandleFunc("POST /api/v1/servers/{name}/reconnect", rt.handleReconnect)
	mux.HandleFunc("POST /api/v1/servers/refresh", rt.handleRefresh)
	mux.HandleFunc("GET /api/v1/servers/{name}/tools", rt.handleServerTools)

	mux.HandleFunc("GET /api/v1/tools", rt.handleListTools)
	mux.HandleFunc("GET /api/v1/resources", rt.handleListResources)
	mux.HandleFunc("GET /api/v1/prompts", rt.handleListPrompts)

	mux.HandleFunc("GET /api/v1/config", rt.handleGetConfig)
	mux.HandleFunc("POST /api/v1/config", rt.handlePostConfig)

	mux.HandleFunc("GET /api/v1/health", rt.handleHealth)
	mux.HandleFunc("GET /api/v1/events", rt.handleEvents)

	mux.Handle("/api/v1/mcp", newMCPHandler(rt.dispatcher, rt.bus))

	return loggingMiddleware(mux)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("HTTPAPI", "%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
