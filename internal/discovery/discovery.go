package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/pkg/logging"
)

// Publisher is the Event Bus's inbound side, kept as a narrow local
// interface so this package never imports the bus implementation.
type Publisher interface {
	Publish(event api.Event)
}

// DroppedDuplicate records a lower-precedence declaration that lost a name
// collision to a higher-precedence source (SPEC_FULL.md §4.1 collision
// rules, surfaced as a config_error server_event).
type DroppedDuplicate struct {
	Name          string
	WinningSource api.Source
	DroppedSource api.Source
}

// ReconcileResult is the three-set diff the Supervisor applies: start a
// Session for each Added, stop+start for each Changed, stop for each
// Removed.
type ReconcileResult struct {
	Added   []api.ServerDecl
	Changed []api.ServerDecl
	Removed []api.ServerDecl
}

// IsNoop reports whether this reconciliation changed nothing, used by the
// config round-trip idempotence property (SPEC_FULL.md §8).
func (r ReconcileResult) IsNoop() bool {
	return len(r.Added) == 0 && len(r.Changed) == 0 && len(r.Removed) == 0
}

// Discovery scans the known IDE config locations and tracks the
// last-resolved set of declarations so Reconcile can diff against it.
type Discovery struct {
	mu        sync.RWMutex
	homeDir   string
	manualDir string
	current   map[string]api.ServerDecl // name -> resolved decl

	publisher Publisher
}

// New creates a Discovery rooted at homeDir (the gateway's notion of $HOME,
// normally os.UserHomeDir()) with manualDir as the gateway-owned source.
func New(homeDir, manualDir string) *Discovery {
	return &Discovery{
		homeDir:   homeDir,
		manualDir: manualDir,
		current:   make(map[string]api.ServerDecl),
	}
}

// SetPublisher attaches the Event Bus after construction, breaking the
// app-wiring initialization-order cycle the same way Registry.SetPublisher
// does. Until called, dropped-duplicate and config-invalid events are
// silently skipped (only logged).
func (d *Discovery) SetPublisher(p Publisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publisher = p
}

// publishConfigError records a config_error server_event for one declaration
// per SPEC_FULL.md §7 ("a server_event of kind config_error is emitted").
func (d *Discovery) publishConfigError(name string, reason string) {
	d.mu.RLock()
	p := d.publisher
	d.mu.RUnlock()
	if p == nil {
		return
	}
	p.Publish(api.Event{
		Kind: api.EventServerEvent,
		Payload: api.ServerEventPayload{
			ServerName: name,
			ErrorKind:  api.KindConfigInvalid,
			Error:      reason,
		},
	})
}

// Scan performs a synchronous full rescan of every known location. It never
// aborts on a per-file error: failures are logged and that file is
// skipped. It returns the precedence-resolved declaration set and the
// duplicates dropped along the way.
func (d *Discovery) Scan() ([]api.ServerDecl, []DroppedDuplicate, error) {
	var all []api.ServerDecl
	for _, loc := range knownLocations(d.homeDir, d.manualDir) {
		decls, err := parseFile(loc)
		if err != nil {
			logging.Warn("Discovery", "skipping %s: %v", loc.path, err)
			continue
		}
		for _, decl := range decls {
			if err := validate(decl); err != nil {
				logging.Warn("Discovery", "dropping invalid declaration %q from %s: %v", decl.Name, loc.source, err)
				d.publishConfigError(decl.Name, err.Error())
				continue
			}
			all = append(all, decl)
		}
	}

	resolved, dropped := resolvePrecedence(all)
	for _, dd := range dropped {
		d.publishConfigError(dd.Name, fmt.Sprintf("duplicate, lower precedence dropped (%s over %s)", dd.WinningSource, dd.DroppedSource))
	}
	return resolved, dropped, nil
}

// validate rejects a declaration Normalize/the Supervisor could never act
// on, classified config_invalid per SPEC_FULL.md §7.
func validate(decl api.ServerDecl) error {
	if decl.Name == "" {
		return api.NewError(api.KindConfigInvalid, "server declaration missing a name", nil)
	}
	switch decl.TransportHint {
	case api.TransportStdio:
		if decl.Command == "" {
			return api.NewError(api.KindConfigInvalid, fmt.Sprintf("server %q declares stdio transport with no command", decl.Name), nil)
		}
	case api.TransportHTTPSSE, api.TransportStreamableHTTP:
		if decl.URL == "" {
			return api.NewError(api.KindConfigInvalid, fmt.Sprintf("server %q declares a remote transport with no url", decl.Name), nil)
		}
	default:
		return api.NewError(api.KindConfigInvalid, fmt.Sprintf("server %q has an unrecognized transport hint %q", decl.Name, decl.TransportHint), nil)
	}
	return nil
}

// resolvePrecedence collapses same-name declarations from multiple sources
// down to the highest-precedence one (manual > cursor > vscode > claude >
// windsurf > continue), returning the dropped lower-precedence variants.
func resolvePrecedence(decls []api.ServerDecl) ([]api.ServerDecl, []DroppedDuplicate) {
	best := make(map[string]api.ServerDecl)
	var dropped []DroppedDuplicate

	for _, decl := range decls {
		existing, ok := best[decl.Name]
		if !ok {
			best[decl.Name] = decl
			continue
		}
		if api.SourcePrecedence[decl.Source] < api.SourcePrecedence[existing.Source] {
			dropped = append(dropped, DroppedDuplicate{Name: decl.Name, WinningSource: decl.Source, DroppedSource: existing.Source})
			best[decl.Name] = decl
		} else {
			dropped = append(dropped, DroppedDuplicate{Name: decl.Name, WinningSource: existing.Source, DroppedSource: decl.Source})
		}
	}

	out := make([]api.ServerDecl, 0, len(best))
	for _, decl := range best {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, dropped
}

// Reconcile rescans, diffs the result against the previously known set,
// and remembers the new set as current. A decl is Changed when any field
// other than pure map/slice identity differs from the prior snapshot.
func (d *Discovery) Reconcile() (ReconcileResult, []DroppedDuplicate, error) {
	resolved, dropped, err := d.Scan()
	if err != nil {
		return ReconcileResult{}, nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]api.ServerDecl, len(resolved))
	var result ReconcileResult

	for _, decl := range resolved {
		next[decl.Name] = decl
		prior, existed := d.current[decl.Name]
		switch {
		case !existed:
			result.Added = append(result.Added, decl)
		case !declsEqual(prior, decl):
			result.Changed = append(result.Changed, decl)
		}
	}
	for name, prior := range d.current {
		if _, stillPresent := next[name]; !stillPresent {
			result.Removed = append(result.Removed, prior)
		}
	}

	d.current = next
	return result, dropped, nil
}

func declsEqual(a, b api.ServerDecl) bool {
	if a.Source != b.Source || a.TransportHint != b.TransportHint ||
		a.Command != b.Command || a.URL != b.URL ||
		a.TimeoutSeconds != b.TimeoutSeconds || a.MaxRetries != b.MaxRetries ||
		a.Enabled != b.Enabled || len(a.Args) != len(b.Args) ||
		len(a.Env) != len(b.Env) || len(a.Headers) != len(b.Headers) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	for k, v := range a.Env {
		if b.Env[k] != v {
			return false
		}
	}
	for k, v := range a.Headers {
		if b.Headers[k] != v {
			return false
		}
	}
	return true
}

// Current returns a snapshot of the last-resolved declaration set.
func (d *Discovery) Current() []api.ServerDecl {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]api.ServerDecl, 0, len(d.current))
	for _, decl := range d.current {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// manualDocument is the JSON shape persisted at the gateway-owned manual
// source. It mirrors every other source's rawDocument but is written, not
// merely read.
type manualDocument struct {
	MCPServers map[string]rawEntry `json:"mcpServers"`
}

// ReadManual returns the gateway-owned manual source document, in the same
// {mcpServers:{...}} shape GET /api/v1/config hands back to clients.
func (d *Discovery) ReadManual() (map[string]any, error) {
	path := filepath.Join(d.manualDir, "manual.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{"mcpServers": map[string]any{}}, nil
		}
		return nil, fmt.Errorf("reading manual source: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manual source: %w", err)
	}
	if doc == nil {
		doc = map[string]any{"mcpServers": map[string]any{}}
	}
	return doc, nil
}

// WriteManual atomically replaces the manual source (temp file + rename,
// never partial) and returns the reconciliation it triggers, per
// SPEC_FULL.md §4.1's write_manual(doc) operation.
func (d *Discovery) WriteManual(doc map[string]any) (ReconcileResult, []DroppedDuplicate, error) {
	if _, ok := doc["mcpServers"]; !ok {
		return ReconcileResult{}, nil, api.NewError(api.KindConfigInvalid, "config document missing mcpServers", nil)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ReconcileResult{}, nil, fmt.Errorf("marshaling manual source: %w", err)
	}

	if err := os.MkdirAll(d.manualDir, 0o755); err != nil {
		return ReconcileResult{}, nil, fmt.Errorf("creating manual source directory: %w", err)
	}

	finalPath := filepath.Join(d.manualDir, "manual.json")
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return ReconcileResult{}, nil, fmt.Errorf("writing manual source temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return ReconcileResult{}, nil, fmt.Errorf("replacing manual source: %w", err)
	}

	logging.Info("Discovery", "wrote manual source to %s", finalPath)
	return d.Reconcile()
}
