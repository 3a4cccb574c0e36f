package discovery

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcpportal/gateway/internal/api"
)

// rawEntry is the tolerant, superset shape of one server entry across every
// source's dialect. Unknown/absent fields are simply left zero.
type rawEntry struct {
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Env            map[string]string `json:"env"`
	URL            string            `json:"url"`
	Type           string            `json:"type"`
	Headers        map[string]string `json:"headers"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
	MaxRetries     int               `json:"maxRetries"`
	Disabled       bool              `json:"disabled"`
}

// rawDocument is the superset of every dialect's top-level document shape.
// vscode's newer releases nest servers under "mcp":{"servers":{...}}; every
// other source (and older vscode) uses a top-level "mcpServers" map.
type rawDocument struct {
	MCPServers map[string]rawEntry `json:"mcpServers"`
	MCP        *struct {
		Servers map[string]rawEntry `json:"servers"`
	} `json:"mcp"`
}

func (d rawDocument) servers() map[string]rawEntry {
	if len(d.MCPServers) > 0 {
		return d.MCPServers
	}
	if d.MCP != nil {
		return d.MCP.Servers
	}
	return nil
}

const (
	defaultTimeoutSeconds = 30
	defaultMaxRetries     = 5
)

// parseFile reads and tolerantly parses one config location. A missing
// file is not an error — it simply contributes no declarations. A present
// but malformed file is logged by the caller and skipped (scan() never
// aborts on a single bad file, per SPEC_FULL.md §4.1).
func parseFile(loc location) ([]api.ServerDecl, error) {
	data, err := os.ReadFile(loc.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", loc.path, err)
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", loc.path, err)
	}

	servers := doc.servers()
	decls := make([]api.ServerDecl, 0, len(servers))
	for name, entry := range servers {
		decls = append(decls, toServerDecl(name, loc.source, entry))
	}
	return decls, nil
}

func toServerDecl(name string, source api.Source, entry rawEntry) api.ServerDecl {
	hint := transportHintOf(entry)

	timeout := entry.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}
	retries := entry.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return api.ServerDecl{
		Name:           name,
		Source:         source,
		TransportHint:  hint,
		Command:        entry.Command,
		Args:           entry.Args,
		Env:            entry.Env,
		URL:            entry.URL,
		Headers:        entry.Headers,
		TimeoutSeconds: timeout,
		MaxRetries:     retries,
		Enabled:        !entry.Disabled,
	}
}

func transportHintOf(entry rawEntry) api.TransportHint {
	switch entry.Type {
	case "sse":
		return api.TransportHTTPSSE
	case "http", "streamable-http", "streamable_http":
		return api.TransportStreamableHTTP
	case "stdio":
		return api.TransportStdio
	}
	// Type absent: infer from which fields are populated.
	if entry.URL != "" {
		return api.TransportHTTPSSE
	}
	return api.TransportStdio
}
