package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/discovery"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/eventbus"
	"github.com/mcpportal/gateway/internal/httpapi"
	"github.com/mcpportal/gateway/internal/registry"
	"github.com/mcpportal/gateway/internal/supervisor"
	"github.com/mcpportal/gateway/pkg/logging"
)

// shutdownGrace is how long Shutdown waits for sessions to close cleanly
// before abandoning them (SPEC_FULL.md §5: "waits up to 5s for graceful
// session close").
const shutdownGrace = 5 * time.Second

// Application owns every live component of a running gateway: the
// Discovery scanner, the Registry/Catalog/Event Bus state, the Supervisor
// that owns sessions, and the HTTP server that serves the REST/SSE/MCP
// surface.
type Application struct {
	cfg *Config

	disc       *discovery.Discovery
	reg        *registry.Registry
	cat        *catalog.Catalog
	bus        *eventbus.Bus
	sup        *supervisor.Supervisor
	dispatcher *dispatch.Dispatcher
	server     *http.Server
}

// NewApplication wires every component together but opens no listener and
// starts no sessions; the only goroutine it launches is the unified MCP
// endpoint's catalog watcher. Call Run to bring it up.
func NewApplication(cfg *Config) (*Application, error) {
	logging.Init(cfg.LogLevel, os.Stdout)

	manualDir := cfg.ConfigDir
	if manualDir == "" {
		dir, err := discovery.DefaultManualDir()
		if err != nil {
			return nil, fmt.Errorf("resolving manual config dir: %w", err)
		}
		manualDir = dir
	}
	if err := os.MkdirAll(manualDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating manual config dir %s: %w", manualDir, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}

	disc := discovery.New(homeDir, manualDir)
	bus := eventbus.New()
	disc.SetPublisher(bus)

	var sup *supervisor.Supervisor
	reg := registry.New(bus, func(name string, enabled bool) {
		sup.SetEnabled(context.Background(), name, enabled)
	})
	cat := catalog.New()
	sup = supervisor.New(reg, cat)

	dispatcher := dispatch.New(cat, func(name string) (dispatch.Caller, bool) {
		return sup.CallerLookup(name)
	}, reg)

	reconnect := func(ctx context.Context, name string) error {
		decl, ok := reg.Decl(name)
		if !ok {
			return fmt.Errorf("unknown server %q", name)
		}
		sup.SetEnabled(ctx, name, false)
		decl.Enabled = true
		reg.Upsert(decl)
		sup.SetEnabled(ctx, name, true)
		return nil
	}
	apply := func(ctx context.Context, result discovery.ReconcileResult) {
		sup.Apply(ctx, result)
	}

	handler := httpapi.New(reg, cat, dispatcher, bus, disc, reconnect, apply)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Application{
		cfg:        cfg,
		disc:       disc,
		reg:        reg,
		cat:        cat,
		bus:        bus,
		sup:        sup,
		dispatcher: dispatcher,
		server:     &http.Server{Addr: addr, Handler: handler},
	}, nil
}

// Run performs the initial discovery + reconciliation, starts the Event
// Bus heartbeat and the config watcher, and serves the HTTP surface until
// ctx is cancelled. It returns once the server has shut down.
func (a *Application) Run(ctx context.Context) error {
	result, dropped, err := a.disc.Reconcile()
	if err != nil {
		return fmt.Errorf("initial discovery: %w", err)
	}
	for _, d := range dropped {
		logging.Warn("App", "duplicate server %q: %s wins over %s", d.Name, d.WinningSource, d.DroppedSource)
	}
	a.sup.Apply(ctx, result)

	busCtx, cancelBus := context.WithCancel(ctx)
	defer cancelBus()
	go a.bus.Run(busCtx)

	if err := a.disc.Watch(ctx, func() {
		res, dups, err := a.disc.Reconcile()
		if err != nil {
			logging.Warn("App", "reconcile on watch event: %v", err)
			return
		}
		for _, d := range dups {
			logging.Warn("App", "duplicate server %q: %s wins over %s", d.Name, d.WinningSource, d.DroppedSource)
		}
		a.sup.Apply(ctx, res)
	}); err != nil {
		logging.Warn("App", "config watch unavailable: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("App", "listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errCh:
		return err
	}
}

func (a *Application) shutdown() error {
	logging.Info("App", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("App", "HTTP server shutdown: %v", err)
	}
	a.sup.Shutdown(shutdownGrace)
	return nil
}

// Discover runs a single synchronous scan and returns the normalized
// declarations, used by the `discover` CLI subcommand. It does not mutate
// the Registry or start any sessions.
func (a *Application) Discover() ([]api.ServerDecl, []discovery.DroppedDuplicate, error) {
	return a.disc.Scan()
}

// ConfigGet returns the gateway-owned manual source document, used by
// `mcp-portal config get`.
func (a *Application) ConfigGet() (map[string]any, error) {
	return a.disc.ReadManual()
}

// ConfigSet atomically replaces the manual source document and reconciles,
// used by `mcp-portal config set PATH`. No sessions are started here; a
// running `serve` process picks up the change via its config watcher.
func (a *Application) ConfigSet(doc map[string]any) (discovery.ReconcileResult, []discovery.DroppedDuplicate, error) {
	return a.disc.WriteManual(doc)
}
