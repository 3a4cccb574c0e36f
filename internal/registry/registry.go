package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/mcpportal/gateway/internal/api"
)

// Publisher is the Event Bus's inbound side, kept as a narrow local
// interface so this package never imports the bus implementation.
type Publisher interface {
	Publish(event api.Event)
}

// EnabledChangeFunc is invoked after SetEnabled updates the in-memory flag,
// so the caller can persist the override to the manual source and signal
// the Supervisor to reconcile.
type EnabledChangeFunc func(name string, enabled bool)

type entry struct {
	decl          api.ServerDecl
	state         api.SessionState
	lastError     string
	retryCount    int
	lastHeartbeat time.Time
	toolCount     int
	resourceCount int
	promptCount   int
}

func (e entry) status() api.ServerStatus {
	return api.ServerStatus{
		Name:          e.decl.Name,
		Source:        e.decl.Source,
		TransportHint: e.decl.TransportHint,
		State:         e.state,
		Enabled:       e.decl.Enabled,
		ToolCount:     e.toolCount,
		ResourceCount: e.resourceCount,
		PromptCount:   e.promptCount,
		LastError:     e.lastError,
		LastHeartbeat: e.lastHeartbeat,
		RetryCount:    e.retryCount,
	}
}

// Registry is the single authoritative store of server state. All writer
// methods take the write lock briefly; readers take the read lock just long
// enough to copy data out, so list_servers()/Snapshot() never block on a
// slow caller holding onto the result.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	publisher Publisher
	onEnabled EnabledChangeFunc
}

// New constructs an empty Registry. publisher may be nil until the Event
// Bus is wired up; onEnabled may be nil if the caller doesn't need to react
// to SetEnabled.
func New(publisher Publisher, onEnabled EnabledChangeFunc) *Registry {
	return &Registry{
		entries:   make(map[string]*entry),
		publisher: publisher,
		onEnabled: onEnabled,
	}
}

// SetPublisher attaches the Event Bus after construction, breaking the
// app-wiring initialization-order cycle between the registry and the bus.
func (r *Registry) SetPublisher(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// Upsert adds or replaces a server's declaration, used when the Supervisor
// applies an added or changed reconciliation delta. A newly added entry
// starts in state init.
func (r *Registry) Upsert(decl api.ServerDecl) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[decl.Name]; ok {
		existing.decl = decl
		return
	}
	r.entries[decl.Name] = &entry{decl: decl, state: api.StateInit}
}

// Remove deletes a server's entry entirely, used when the Supervisor applies
// a removed reconciliation delta.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// UpdateState records a Session's latest state transition.
func (r *Registry) UpdateState(name string, state api.SessionState, lastError string, retryCount int) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok {
		e.state = state
		e.lastError = lastError
		e.retryCount = retryCount
	}
	r.mu.Unlock()

	if ok {
		r.RecordEvent(api.Event{
			Kind:      api.EventServerEvent,
			Payload:   api.ServerEventPayload{ServerName: name, State: state, Error: lastError},
			Timestamp: time.Now(),
		})
	}
}

// RecordHeartbeat updates the last successful ping time for a server.
func (r *Registry) RecordHeartbeat(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.lastHeartbeat = at
	}
}

// UpdateInventory performs an atomic swap of one session's catalog
// footprint: the counts of tools, resources and prompts it currently
// contributes. The full descriptor lists live in the catalog package, which
// subscribes to the same session callbacks; the Registry keeps only the
// counts needed for ServerStatus.
func (r *Registry) UpdateInventory(name string, toolCount, resourceCount, promptCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.toolCount = toolCount
		e.resourceCount = resourceCount
		e.promptCount = promptCount
	}
}

// SetEnabled flips a server's enabled flag and notifies onEnabled so the
// caller can persist the override to the manual source and trigger
// reconciliation. Returns not_found if name is unknown.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok {
		e.decl.Enabled = enabled
	}
	r.mu.Unlock()

	if !ok {
		return api.NewServerNotFoundError(name)
	}
	if r.onEnabled != nil {
		r.onEnabled(name, enabled)
	}
	return nil
}

// Get returns one server's current status.
func (r *Registry) Get(name string) (api.ServerStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return api.ServerStatus{}, false
	}
	return e.status(), true
}

// Decl returns the current declaration for name, used by the Supervisor to
// rebuild a Session after a reconnect or config change.
func (r *Registry) Decl(name string) (api.ServerDecl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return api.ServerDecl{}, false
	}
	return e.decl.Clone(), true
}

// ListServers returns a stable, name-sorted snapshot of every known server.
func (r *Registry) ListServers() []api.ServerStatus {
	r.mu.RLock()
	out := make([]api.ServerStatus, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.status())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot is an alias for ListServers used by components that think of the
// Registry as a read-model rather than a server directory (SPEC_FULL.md
// §4.5).
func (r *Registry) Snapshot() []api.ServerStatus { return r.ListServers() }

// RecordEvent appends event to the Event Bus, if one is attached.
func (r *Registry) RecordEvent(event api.Event) {
	r.mu.RLock()
	p := r.publisher
	r.mu.RUnlock()

	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.Publish(event)
}

// Names returns every known server name, for Supervisor diffing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
