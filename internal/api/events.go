package api

import "time"

// EventKind is the closed set of Event Bus topics from SPEC_FULL.md §4.8.
type EventKind string

const (
	EventInitialStatus      EventKind = "initial_status"
	EventStatusUpdate       EventKind = "status_update"
	EventServerEvent        EventKind = "server_event"
	EventToolExecution      EventKind = "tool_execution"
	EventResourceAccess     EventKind = "resource_access"
	EventServerReconnection EventKind = "server_reconnection"
	EventMetricsUpdate      EventKind = "metrics_update"
	EventHeartbeat          EventKind = "heartbeat"
	EventOverflow           EventKind = "overflow"
)

// Event is one fan-out message recorded on the Event Bus.
type Event struct {
	Kind      EventKind `json:"kind"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolExecutionPayload is the Payload shape for EventToolExecution.
type ToolExecutionPayload struct {
	ServerName string `json:"server_name"`
	Original   string `json:"original"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ResourceAccessPayload is the Payload shape for EventResourceAccess.
type ResourceAccessPayload struct {
	ServerName string `json:"server_name"`
	Original   string `json:"original"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// ServerEventPayload is the Payload shape for EventServerEvent and
// EventServerReconnection: a state transition for one server. Success is set
// on EventServerReconnection to distinguish a completed reconnect from one
// still in progress; EventServerEvent leaves it false. ErrorKind is set for
// the config_error sub-kind of EventServerEvent (SPEC_FULL.md §7) emitted by
// Discovery for a dropped duplicate or a rejected declaration; it is empty
// for ordinary session state transitions.
type ServerEventPayload struct {
	ServerName string       `json:"server_name"`
	State      SessionState `json:"state"`
	Error      string       `json:"error,omitempty"`
	Success    bool         `json:"success,omitempty"`
	ErrorKind  ErrorKind    `json:"error_kind,omitempty"`
}
