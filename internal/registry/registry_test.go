package registry

import (
	"sync"
	"testing"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []api.Event
}

func (f *fakePublisher) Publish(e api.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func TestUpsertAndGet(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha", Enabled: true})

	status, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, api.StateInit, status.State)
	assert.True(t, status.Enabled)
}

func TestUpsertReplacesExistingDecl(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha", Enabled: true, Command: "old"})
	r.UpdateState("alpha", api.StateReady, "", 0)
	r.Upsert(api.ServerDecl{Name: "alpha", Enabled: true, Command: "new"})

	status, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, api.StateReady, status.State, "replacing the decl must not reset session state")

	decl, ok := r.Decl("alpha")
	require.True(t, ok)
	assert.Equal(t, "new", decl.Command)
}

func TestRemoveDeletesEntry(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha"})
	r.Remove("alpha")

	_, ok := r.Get("alpha")
	assert.False(t, ok)
}

func TestSetEnabledUnknownServer(t *testing.T) {
	r := New(nil, nil)
	err := r.SetEnabled("ghost", true)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestSetEnabledInvokesCallback(t *testing.T) {
	var calledName string
	var calledEnabled bool
	r := New(nil, func(name string, enabled bool) {
		calledName = name
		calledEnabled = enabled
	})
	r.Upsert(api.ServerDecl{Name: "alpha", Enabled: true})

	require.NoError(t, r.SetEnabled("alpha", false))
	assert.Equal(t, "alpha", calledName)
	assert.False(t, calledEnabled)

	status, _ := r.Get("alpha")
	assert.False(t, status.Enabled)
}

func TestUpdateStateRecordsEvent(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub, nil)
	r.Upsert(api.ServerDecl{Name: "alpha"})

	r.UpdateState("alpha", api.StateReady, "", 0)
	assert.Equal(t, 1, pub.count())

	status, _ := r.Get("alpha")
	assert.Equal(t, api.StateReady, status.State)
}

func TestUpdateStateUnknownServerNoEvent(t *testing.T) {
	pub := &fakePublisher{}
	r := New(pub, nil)
	r.UpdateState("ghost", api.StateReady, "", 0)
	assert.Equal(t, 0, pub.count())
}

func TestUpdateInventoryUpdatesCounts(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha"})
	r.UpdateInventory("alpha", 3, 2, 1)

	status, _ := r.Get("alpha")
	assert.Equal(t, 3, status.ToolCount)
	assert.Equal(t, 2, status.ResourceCount)
	assert.Equal(t, 1, status.PromptCount)
}

func TestListServersStableSortedByName(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "zeta"})
	r.Upsert(api.ServerDecl{Name: "alpha"})
	r.Upsert(api.ServerDecl{Name: "mid"})

	names := make([]string, 0, 3)
	for _, s := range r.ListServers() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestSnapshotMatchesListServers(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha"})
	assert.Equal(t, r.ListServers(), r.Snapshot())
}

func TestDeclClonedNotAliased(t *testing.T) {
	r := New(nil, nil)
	r.Upsert(api.ServerDecl{Name: "alpha", Args: []string{"x"}})

	decl, ok := r.Decl("alpha")
	require.True(t, ok)
	decl.Args[0] = "mutated"

	decl2, _ := r.Decl("alpha")
	assert.Equal(t, "x", decl2.Args[0])
}
