package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mcpportal/gateway/internal/api"
	"github.com/mcpportal/gateway/internal/session"
)

type toolEntry struct {
	serverName   string
	originalName string
}

type resourceEntry struct {
	serverName  string
	originalURI string
}

type promptEntry struct {
	serverName   string
	originalName string
}

// Catalog is the Aggregator: a merged, prefixed view rebuilt from every
// session's latest inventory. Rebuilds are cheap relative to MCP round
// trips, so UpdateSession recomputes the whole catalog rather than patching
// it incrementally.
type Catalog struct {
	mu         sync.RWMutex
	inventory  map[string]session.Inventory
	tools      map[string]toolEntry
	resources  map[string]resourceEntry
	prompts    map[string]promptEntry
	toolList   []api.ToolDescriptor
	resList    []api.ResourceDescriptor
	promptList []api.PromptDescriptor
}

// New constructs an empty Catalog.
func New() *Catalog {
	return &Catalog{inventory: make(map[string]session.Inventory)}
}

// UpdateSession replaces one server's contribution to the catalog and
// rebuilds the aggregate. Called whenever a Session's refresh_inventory()
// completes.
func (c *Catalog) UpdateSession(serverName string, inv session.Inventory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inventory[serverName] = inv
	c.rebuildLocked()
}

// RemoveSession drops a server's contribution entirely, used when a Session
// stops or its decl is removed.
func (c *Catalog) RemoveSession(serverName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inventory, serverName)
	c.rebuildLocked()
}

func (c *Catalog) rebuildLocked() {
	servers := make([]string, 0, len(c.inventory))
	for name := range c.inventory {
		servers = append(servers, name)
	}
	sort.Strings(servers)

	tools := make(map[string]toolEntry)
	resources := make(map[string]resourceEntry)
	prompts := make(map[string]promptEntry)
	var toolList []api.ToolDescriptor
	var resList []api.ResourceDescriptor
	var promptList []api.PromptDescriptor

	for _, server := range servers {
		inv := c.inventory[server]

		for _, t := range inv.Tools {
			base := server + "." + t.Name
			prefixed := dedupe(base, func(k string) bool { _, ok := tools[k]; return ok })
			tools[prefixed] = toolEntry{serverName: server, originalName: t.Name}
			toolList = append(toolList, api.ToolDescriptor{
				OriginalName: t.Name,
				ServerName:   server,
				PrefixedName: prefixed,
				Description:  t.Description,
				Parameters:   t.Parameters,
			})
		}

		for _, r := range inv.Resources {
			base := prefixResourceURI(server, r.URI)
			prefixed := dedupe(base, func(k string) bool { _, ok := resources[k]; return ok })
			resources[prefixed] = resourceEntry{serverName: server, originalURI: r.URI}
			resList = append(resList, api.ResourceDescriptor{
				OriginalURI: r.URI,
				ServerName:  server,
				PrefixedURI: prefixed,
				Description: r.Description,
				MimeType:    r.MimeType,
			})
		}

		for _, p := range inv.Prompts {
			base := server + "." + p.Name
			prefixed := dedupe(base, func(k string) bool { _, ok := prompts[k]; return ok })
			prompts[prefixed] = promptEntry{serverName: server, originalName: p.Name}
			promptList = append(promptList, api.PromptDescriptor{
				OriginalName: p.Name,
				ServerName:   server,
				PrefixedName: prefixed,
				Description:  p.Description,
				Arguments:    toAPIArguments(p.Arguments),
			})
		}
	}

	sort.Slice(toolList, func(i, j int) bool { return toolList[i].PrefixedName < toolList[j].PrefixedName })
	sort.Slice(resList, func(i, j int) bool { return resList[i].PrefixedURI < resList[j].PrefixedURI })
	sort.Slice(promptList, func(i, j int) bool { return promptList[i].PrefixedName < promptList[j].PrefixedName })

	c.tools = tools
	c.resources = resources
	c.prompts = prompts
	c.toolList = toolList
	c.resList = resList
	c.promptList = promptList
}

// prefixResourceURI implements the Open Question decision recorded in
// DESIGN.md: an absolute upstream URI (one that already carries a scheme)
// passes through verbatim; only relative URIs gain the mcp:// wrapper.
func prefixResourceURI(server, uri string) string {
	if strings.Contains(uri, "://") {
		return uri
	}
	return "mcp://" + server + "/" + uri
}

// dedupe appends a #n suffix to base until taken reports it free, per the
// Aggregator's rare-collision rule.
func dedupe(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s#%d", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

func toAPIArguments(args []session.PromptArgument) []api.PromptArgument {
	if len(args) == 0 {
		return nil
	}
	out := make([]api.PromptArgument, len(args))
	for i, a := range args {
		out[i] = api.PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required}
	}
	return out
}

// ListTools returns a stable, prefixed-name-sorted snapshot.
func (c *Catalog) ListTools() []api.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.ToolDescriptor, len(c.toolList))
	copy(out, c.toolList)
	return out
}

// ListResources returns a stable, prefixed-uri-sorted snapshot.
func (c *Catalog) ListResources() []api.ResourceDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.ResourceDescriptor, len(c.resList))
	copy(out, c.resList)
	return out
}

// ListPrompts returns a stable, prefixed-name-sorted snapshot.
func (c *Catalog) ListPrompts() []api.PromptDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.PromptDescriptor, len(c.promptList))
	copy(out, c.promptList)
	return out
}

// ResolveTool is O(1): map a prefixed tool name back to its owning server
// and original name.
func (c *Catalog) ResolveTool(prefixedName string) (serverName, originalName string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tools[prefixedName]
	if !ok {
		return "", "", api.NewToolNotFoundError(prefixedName)
	}
	return e.serverName, e.originalName, nil
}

// ResolveResource is O(1): map a prefixed resource URI back to its owning
// server and original URI.
func (c *Catalog) ResolveResource(prefixedURI string) (serverName, originalURI string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.resources[prefixedURI]
	if !ok {
		return "", "", api.NewResourceNotFoundError(prefixedURI)
	}
	return e.serverName, e.originalURI, nil
}

// ResolvePrompt is O(1): map a prefixed prompt name back to its owning
// server and original name.
func (c *Catalog) ResolvePrompt(prefixedName string) (serverName, originalName string, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.prompts[prefixedName]
	if !ok {
		return "", "", api.NewPromptNotFoundError(prefixedName)
	}
	return e.serverName, e.originalName, nil
}
