package api

import "time"

// Source identifies which IDE configuration a ServerDecl was recovered from.
// Precedence among sources (highest first) is manual > cursor > vscode >
// claude > windsurf > continue.
type Source string

const (
	SourceManual    Source = "manual"
	SourceCursor    Source = "cursor"
	SourceVSCode    Source = "vscode"
	SourceClaude    Source = "claude"
	SourceWindsurf  Source = "windsurf"
	SourceContinue  Source = "continue"
)

// SourcePrecedence ranks sources from highest (0) to lowest. Lower-precedence
// duplicates of the same server name are dropped during reconciliation.
var SourcePrecedence = map[Source]int{
	SourceManual:   0,
	SourceCursor:   1,
	SourceVSCode:   2,
	SourceClaude:   3,
	SourceWindsurf: 4,
	SourceContinue: 5,
}

// TransportHint says which carrier a ServerDecl wants. StreamableHTTP is a
// supplemented variant of the http_sse carrier contract (see SPEC_FULL.md
// §4.3), not a distinct component.
type TransportHint string

const (
	TransportStdio          TransportHint = "stdio"
	TransportHTTPSSE        TransportHint = "http_sse"
	TransportStreamableHTTP TransportHint = "streamable_http"
)

// ServerDecl is declared intent for one upstream MCP server, produced by
// Discovery and consumed by the Supervisor.
type ServerDecl struct {
	Name          string            `json:"name"`
	Source        Source            `json:"source"`
	TransportHint TransportHint      `json:"transport_hint"`
	Command       string            `json:"command,omitempty"`
	Args          []string          `json:"args,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	URL           string            `json:"url,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int              `json:"timeout_seconds"`
	MaxRetries    int               `json:"max_retries"`
	Enabled       bool              `json:"enabled"`
}

// Clone returns a deep-enough copy so callers can mutate maps/slices without
// affecting the original declaration.
func (d ServerDecl) Clone() ServerDecl {
	out := d
	if d.Args != nil {
		out.Args = append([]string(nil), d.Args...)
	}
	if d.Env != nil {
		out.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			out.Env[k] = v
		}
	}
	if d.Headers != nil {
		out.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			out.Headers[k] = v
		}
	}
	return out
}

// SessionState is the Session state machine described in SPEC_FULL.md §4.4.
type SessionState string

const (
	StateInit       SessionState = "init"
	StateConnecting SessionState = "connecting"
	StateReady      SessionState = "ready"
	StateDegraded   SessionState = "degraded"
	StateFailed     SessionState = "failed"
	StateStopped    SessionState = "stopped"
)

// ToolDescriptor is the aggregated, prefixed view of one upstream tool.
type ToolDescriptor struct {
	OriginalName string `json:"original_name"`
	ServerName   string `json:"server_name"`
	PrefixedName string `json:"prefixed_name"`
	Description  string `json:"description,omitempty"`
	Parameters   any    `json:"parameters,omitempty"`
}

// ResourceDescriptor is the aggregated, prefixed view of one upstream
// resource. Absolute upstream URIs (scheme other than the empty/relative
// case) are preserved verbatim per SPEC_FULL.md's Open Question decision;
// only relative URIs are rewritten with the mcp://<server>/ prefix.
type ResourceDescriptor struct {
	OriginalURI string `json:"original_uri"`
	ServerName  string `json:"server_name"`
	PrefixedURI string `json:"prefixed_uri"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// PromptDescriptor is the supplemented third aggregated primitive (see
// SPEC_FULL.md §1 "Supplemented features").
type PromptDescriptor struct {
	OriginalName string             `json:"original_name"`
	ServerName   string             `json:"server_name"`
	PrefixedName string             `json:"prefixed_name"`
	Description  string             `json:"description,omitempty"`
	Arguments    []PromptArgument   `json:"arguments,omitempty"`
}

// PromptArgument describes one named argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ServerStatus is the read-model handed to list_servers() and the REST
// layer: a point-in-time projection of one Session plus its ServerDecl.
type ServerStatus struct {
	Name            string        `json:"name"`
	Source          Source        `json:"source"`
	TransportHint   TransportHint `json:"transport_hint"`
	State           SessionState  `json:"state"`
	Enabled         bool          `json:"enabled"`
	ToolCount       int           `json:"tool_count"`
	ResourceCount   int           `json:"resource_count"`
	PromptCount     int           `json:"prompt_count"`
	LastError       string        `json:"last_error,omitempty"`
	LastHeartbeat   time.Time     `json:"last_heartbeat,omitempty"`
	RetryCount      int           `json:"retry_count"`
}
