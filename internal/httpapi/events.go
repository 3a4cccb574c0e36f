package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/mcpportal/gateway/internal/api"
)

// handleEvents streams the Event Bus as text/event-stream frames. The first
// frame is always initial_status carrying the full Registry snapshot, then
// every subsequent Bus event (including the 15s heartbeat) is forwarded
// verbatim as it arrives.
func (rt *Router) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, api.NewError(api.KindFatal, "streaming unsupported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initial := api.Event{Kind: api.EventInitialStatus, Payload: map[string]any{"servers": rt.registry.ListServers()}}
	if !writeSSEFrame(w, initial) {
		return
	}
	flusher.Flush()

	sub := rt.bus.Subscribe()
	defer sub.Close()

	ctx := r.Context()
	for {
		event, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if !writeSSEFrame(w, event) {
			return
		}
		flusher.Flush()
	}
}

func writeSSEFrame(w http.ResponseWriter, event api.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		return false
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	_, err = w.Write([]byte("\n\n"))
	return err == nil
}
