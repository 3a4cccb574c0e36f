package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/upstream"
	"github.com/mcpportal/gateway/pkg/logging"
	"github.com/mark3labs/mcp-go/mcp"
)

// pingInterval is the cadence of the health ping, per SPEC_FULL.md §4.4
// ("at most every 30 s").
const pingInterval = 30 * time.Second

// ClientFactory builds a fresh, unconnected transport carrier for one
// upstream server. A new carrier is requested on every (re)connect attempt;
// for the stdio transport that means a freshly spawned child process.
type ClientFactory func() upstream.Client

// StateChangeFunc is notified whenever a Session's state transitions.
type StateChangeFunc func(name string, old, new api.SessionState, err error)

// InventoryFunc is notified after every successful refresh_inventory().
type InventoryFunc func(name string, inv Inventory)

// ReconnectFunc is notified when reconnectLoop recovers a session back to
// ready, distinct from the initial Start() handshake: onState alone cannot
// tell the two apart since both produce an identical connecting->ready
// transition.
type ReconnectFunc func(name string)

// Session owns the lifecycle of one upstream MCP connection: handshake,
// periodic ping, inventory refresh, and reconnection with exponential
// backoff. It mirrors the embed-a-base-and-guard-with-a-mutex shape used
// throughout this codebase's service layer, specialized to the six-state
// machine in SPEC_FULL.md §4.4.
type Session struct {
	name        string
	decl        api.ServerDecl
	newClient   ClientFactory
	maxRetries  int
	onState     StateChangeFunc
	onInventory InventoryFunc
	onReconnect ReconnectFunc

	mu         sync.RWMutex
	state      api.SessionState
	client     upstream.Client
	lastError  string
	retryCount int
	lastPingAt time.Time
	inventory  Inventory

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Session in state init. Call Start to begin the handshake
// and background reconnect loop. onReconnect may be nil if the caller has no
// interest in reconnection notifications.
func New(name string, decl api.ServerDecl, newClient ClientFactory, onState StateChangeFunc, onInventory InventoryFunc, onReconnect ReconnectFunc) *Session {
	return &Session{
		name:        name,
		decl:        decl,
		newClient:   newClient,
		maxRetries:  decl.MaxRetries,
		onState:     onState,
		onInventory: onInventory,
		onReconnect: onReconnect,
		state:       api.StateInit,
	}
}

// Name returns the server name this session manages.
func (s *Session) Name() string { return s.name }

// State returns the current state.
func (s *Session) State() api.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a point-in-time view for ServerStatus projection.
func (s *Session) Snapshot() (state api.SessionState, lastError string, retryCount int, lastPingAt time.Time, inv Inventory) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastError, s.retryCount, s.lastPingAt, s.inventory
}

func (s *Session) setState(next api.SessionState, err error) {
	s.mu.Lock()
	old := s.state
	s.state = next
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	if old == next {
		return
	}
	logging.Info("Session", "%s: %s -> %s", s.name, old, next)
	if s.onState != nil {
		s.onState(s.name, old, next, err)
	}
}

// Start performs the initial handshake synchronously, then launches the
// background ping/reconnect loop. Returns the handshake error, if any; the
// Session is left in state failed (handshake_fail) or ready (handshake_ok).
func (s *Session) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.setState(api.StateConnecting, nil)
	client := s.newClient()

	timeout := time.Duration(s.decl.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	initCtx, initCancel := context.WithTimeout(runCtx, timeout)
	err := client.Initialize(initCtx)
	initCancel()

	if err != nil {
		s.setState(api.StateFailed, fmt.Errorf("handshake_fail: %w", err))
		cancel()
		return err
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if err := s.refreshInventory(runCtx); err != nil {
		logging.Warn("Session", "%s: initial inventory fetch failed: %v", s.name, err)
	}
	s.setState(api.StateReady, nil)

	s.wg.Add(1)
	go s.run(runCtx)
	return nil
}

// Stop cancels the background loop, closes the transport and transitions to
// the terminal stopped state. Safe to call more than once.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		if err := client.Close(); err != nil {
			logging.Debug("Session", "%s: error closing transport: %v", s.name, err)
		}
	}
	s.setState(api.StateStopped, nil)
}

// run is the background ping/reconnect loop. It owns all transitions out of
// ready and degraded.
func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.healthCheck(ctx)
		}
	}
}

func (s *Session) healthCheck(ctx context.Context) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := client.Ping(pingCtx)
	cancel()

	if err == nil {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()
		return
	}

	logging.Warn("Session", "%s: ping failed, entering degraded: %v", s.name, err)
	s.setState(api.StateDegraded, fmt.Errorf("transport_error: %w", err))
	s.reconnectLoop(ctx)
}

// reconnectLoop retries the handshake with exponential backoff and full
// jitter, capped at maxRetries consecutive failures. A successful frame
// resets the retry counter (here, a successful reconnect resets it, since
// the underlying transport library owns per-frame correlation).
func (s *Session) reconnectLoop(ctx context.Context) {
	s.setState(api.StateConnecting, nil)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		if s.maxRetries > 0 && attempt >= s.maxRetries {
			s.setState(api.StateFailed, fmt.Errorf("reconnect exhausted after %d attempts", attempt))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffDelay(attempt)):
		}

		client := s.newClient()
		timeout := time.Duration(s.decl.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		initCtx, cancel := context.WithTimeout(ctx, timeout)
		err := client.Initialize(initCtx)
		cancel()

		s.mu.Lock()
		s.retryCount = attempt + 1
		s.mu.Unlock()

		if err != nil {
			attempt++
			logging.Warn("Session", "%s: reconnect attempt %d failed: %v", s.name, attempt, err)
			continue
		}

		s.mu.Lock()
		s.client = client
		s.retryCount = 0
		s.mu.Unlock()

		if err := s.refreshInventory(ctx); err != nil {
			logging.Warn("Session", "%s: post-reconnect inventory fetch failed: %v", s.name, err)
		}
		s.setState(api.StateReady, nil)
		if s.onReconnect != nil {
			s.onReconnect(s.name)
		}
		return
	}
}

// refreshInventory re-issues tools/list, resources/list and prompts/list and
// swaps the cached Inventory atomically.
func (s *Session) refreshInventory(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("session_closed")
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}
	resources, err := client.ListResources(ctx)
	if err != nil {
		return fmt.Errorf("resources/list: %w", err)
	}
	prompts, err := client.ListPrompts(ctx)
	if err != nil {
		return fmt.Errorf("prompts/list: %w", err)
	}

	inv := Inventory{
		Tools:     toToolInfos(tools),
		Resources: toResourceInfos(resources),
		Prompts:   toPromptInfos(prompts),
	}

	s.mu.Lock()
	s.inventory = inv
	s.mu.Unlock()

	if s.onInventory != nil {
		s.onInventory(s.name, inv)
	}
	return nil
}

// ListTools exposes the carrier's current tool inventory, serving live
// traffic only when the session is ready or degraded.
func (s *Session) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	client, err := s.readyClient()
	if err != nil {
		return nil, err
	}
	return client.ListTools(ctx)
}

// CallTool forwards a tools/call to the upstream carrier.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	client, err := s.readyClient()
	if err != nil {
		return nil, err
	}
	return client.CallTool(ctx, name, args)
}

// ReadResource forwards a resources/read to the upstream carrier.
func (s *Session) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	client, err := s.readyClient()
	if err != nil {
		return nil, err
	}
	return client.ReadResource(ctx, uri)
}

// GetPrompt forwards a prompts/get to the upstream carrier.
func (s *Session) GetPrompt(ctx context.Context, name string, args map[string]any) (*mcp.GetPromptResult, error) {
	client, err := s.readyClient()
	if err != nil {
		return nil, err
	}
	return client.GetPrompt(ctx, name, args)
}

func (s *Session) readyClient() (upstream.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != api.StateReady && s.state != api.StateDegraded {
		return nil, api.NewError(api.KindSessionClosed, fmt.Sprintf("session %s is %s", s.name, s.state), nil)
	}
	if s.client == nil {
		return nil, api.NewError(api.KindSessionClosed, fmt.Sprintf("session %s has no live transport", s.name), nil)
	}
	return s.client, nil
}

func toToolInfos(tools []mcp.Tool) []ToolInfo {
	out := make([]ToolInfo, len(tools))
	for i, t := range tools {
		out[i] = ToolInfo{Name: t.Name, Description: t.Description, Parameters: t.InputSchema}
	}
	return out
}

func toResourceInfos(resources []mcp.Resource) []ResourceInfo {
	out := make([]ResourceInfo, len(resources))
	for i, r := range resources {
		out[i] = ResourceInfo{URI: r.URI, Description: r.Description, MimeType: r.MIMEType}
	}
	return out
}

func toPromptInfos(prompts []mcp.Prompt) []PromptInfo {
	out := make([]PromptInfo, len(prompts))
	for i, p := range prompts {
		args := make([]PromptArgument, len(p.Arguments))
		for j, a := range p.Arguments {
			args[j] = PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required}
		}
		out[i] = PromptInfo{Name: p.Name, Description: p.Description, Arguments: args}
	}
	return out
}
