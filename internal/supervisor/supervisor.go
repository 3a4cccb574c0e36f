package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/catalog"
	"github.com/mcpportal/gateway/internal/discovery"
	"github.com/mcpportal/gateway/internal/dispatch"
	"github.com/mcpportal/gateway/internal/normalizer"
	"github.com/mcpportal/gateway/internal/registry"
	"github.com/mcpportal/gateway/internal/session"
	"github.com/mcpportal/gateway/internal/upstream"
	"github.com/mcpportal/gateway/pkg/logging"
)

// buildClientFactory turns a declaration into a session.ClientFactory over
// the matching transport carrier. A fresh carrier is built on every
// (re)connect attempt, per session.ClientFactory's contract.
func buildClientFactory(decl api.ServerDecl) (session.ClientFactory, error) {
	switch decl.TransportHint {
	case api.TransportStdio:
		spawn, err := normalizer.Normalize(decl)
		if err != nil {
			return nil, fmt.Errorf("normalizing %s: %w", decl.Name, err)
		}
		return func() upstream.Client {
			return upstream.NewStdioClient(spawn.Path, spawn.Args, spawn.Env)
		}, nil
	case api.TransportHTTPSSE:
		return func() upstream.Client {
			return upstream.NewSSEClient(decl.URL, decl.Headers)
		}, nil
	case api.TransportStreamableHTTP:
		return func() upstream.Client {
			return upstream.NewStreamableHTTPClient(decl.URL, decl.Headers)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported transport hint %q for %s", decl.TransportHint, decl.Name)
	}
}

// Supervisor applies discovery.ReconcileResult deltas against a set of live
// Sessions. A single mutex serializes reconciliation application (§5:
// "a single reconciliation is serialized"); the sessions a reconciliation
// starts run concurrently with each other.
type Supervisor struct {
	applyMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*session.Session

	registry       *registry.Registry
	catalog        *catalog.Catalog
	buildTransport func(api.ServerDecl) (session.ClientFactory, error)
}

// Option configures a Supervisor at construction time.
type Option func(*Supervisor)

// WithTransportBuilder overrides how a ServerDecl is turned into a
// session.ClientFactory, used by tests to substitute an in-memory carrier
// for the real stdio/SSE/streamable-http transports.
func WithTransportBuilder(build func(api.ServerDecl) (session.ClientFactory, error)) Option {
	return func(s *Supervisor) { s.buildTransport = build }
}

// New constructs a Supervisor that reports state and inventory changes into
// reg and cat.
func New(reg *registry.Registry, cat *catalog.Catalog, opts ...Option) *Supervisor {
	s := &Supervisor{
		sessions:       make(map[string]*session.Session),
		registry:       reg,
		catalog:        cat,
		buildTransport: buildClientFactory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the live Session for name, if any.
func (s *Supervisor) Session(name string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[name]
	return sess, ok
}

// CallerLookup adapts Session to dispatch.SessionLookup: *session.Session
// satisfies dispatch.Caller directly.
func (s *Supervisor) CallerLookup(name string) (dispatch.Caller, bool) {
	return s.Session(name)
}

// Apply applies one reconciliation delta: each Added enabled decl starts a
// Session, each Removed stops one, each Changed stops then starts. Disabled
// decls among Added/Changed are registered but not started.
func (s *Supervisor) Apply(ctx context.Context, result discovery.ReconcileResult) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	for _, decl := range result.Removed {
		s.registry.Remove(decl.Name)
		s.catalog.RemoveSession(decl.Name)
		s.stopSession(decl.Name)
	}

	for _, decl := range result.Changed {
		s.registry.Upsert(decl)
		s.stopSession(decl.Name)
		if decl.Enabled {
			s.startSession(ctx, decl)
		} else {
			s.catalog.RemoveSession(decl.Name)
		}
	}

	var wg sync.WaitGroup
	for _, decl := range result.Added {
		s.registry.Upsert(decl)
		if !decl.Enabled {
			continue
		}
		wg.Add(1)
		go func(decl api.ServerDecl) {
			defer wg.Done()
			s.startSession(ctx, decl)
		}(decl)
	}
	wg.Wait()
}

// SetEnabled starts or stops a single server's session in response to a
// Registry.SetEnabled callback, without touching any other server.
func (s *Supervisor) SetEnabled(ctx context.Context, name string, enabled bool) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	decl, ok := s.registry.Decl(name)
	if !ok {
		return
	}
	decl.Enabled = enabled

	if enabled {
		s.startSession(ctx, decl)
	} else {
		s.stopSession(name)
		s.catalog.RemoveSession(name)
	}
}

func (s *Supervisor) startSession(ctx context.Context, decl api.ServerDecl) {
	factory, err := s.buildTransport(decl)
	if err != nil {
		logging.Error("Supervisor", err, "cannot build transport for %s", decl.Name)
		s.registry.UpdateState(decl.Name, api.StateFailed, err.Error(), 0)
		return
	}

	sess := session.New(decl.Name, decl, factory,
		func(name string, old, new api.SessionState, stateErr error) {
			msg := ""
			if stateErr != nil {
				msg = stateErr.Error()
			}
			s.registry.UpdateState(name, new, msg, 0)
			// §8 invariant #1 requires every listed tool's session to be
			// ready; leaving ready for any other state (degraded, failed,
			// stopped, connecting) must drop the server out of the
			// catalog immediately, not just on an explicit disable/remove.
			if new != api.StateReady {
				s.catalog.RemoveSession(name)
			}
		},
		func(name string, inv session.Inventory) {
			s.catalog.UpdateSession(name, inv)
			s.registry.UpdateInventory(name, len(inv.Tools), len(inv.Resources), len(inv.Prompts))
		},
		func(name string) {
			s.registry.RecordEvent(api.Event{
				Kind: api.EventServerReconnection,
				Payload: api.ServerEventPayload{
					ServerName: name,
					State:      api.StateReady,
					Success:    true,
				},
			})
		},
	)

	s.mu.Lock()
	s.sessions[decl.Name] = sess
	s.mu.Unlock()

	if err := sess.Start(ctx); err != nil {
		logging.Warn("Supervisor", "%s failed to start: %v", decl.Name, err)
	}
}

func (s *Supervisor) stopSession(name string) {
	s.mu.Lock()
	sess, ok := s.sessions[name]
	delete(s.sessions, name)
	s.mu.Unlock()

	if ok {
		sess.Stop()
	}
}

// Shutdown removes every live session and stops them in parallel, giving
// them up to grace to exit cleanly. Sessions still running past the deadline
// are abandoned here; the process exits once Application.Run returns to the
// serve command.
func (s *Supervisor) Shutdown(grace time.Duration) {
	s.mu.Lock()
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, sess := range sessions {
			wg.Add(1)
			go func(sess *session.Session) {
				defer wg.Done()
				sess.Stop()
			}(sess)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		logging.Warn("Supervisor", "shutdown grace period of %s elapsed with sessions still stopping", grace)
	}
}
