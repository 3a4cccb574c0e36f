package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcpportal/gateway/internal/api"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {error:{kind,message}}, classifying it through
// api.KindOf so an unclassified error still carries a taxonomy label.
func writeError(w http.ResponseWriter, err error) {
	kind := api.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case api.KindNotFound:
		status = http.StatusNotFound
	case api.KindConfigInvalid:
		status = http.StatusBadRequest
	case api.KindTimeout:
		status = http.StatusGatewayTimeout
	case api.KindUpstreamUnavailable, api.KindSessionClosed:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"kind": string(kind), "message": err.Error()},
	})
}

func (rt *Router) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"servers": rt.registry.ListServers()})
}

func (rt *Router) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if err := rt.registry.SetEnabled(name, enabled); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "server " + name + " updated"})
	}
}

func (rt *Router) handleReconnect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := rt.registry.Get(name); !ok {
		writeError(w, api.NewServerNotFoundError(name))
		return
	}
	if rt.reconnect != nil {
		if err := rt.reconnect(r.Context(), name); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "server " + name + " reconnecting"})
}

func (rt *Router) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, _, err := rt.discovery.Reconcile()
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.apply != nil {
		rt.apply(r.Context(), result)
	}
	discovered := len(result.Added) + len(result.Changed) + len(result.Removed)
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"discovered_count": discovered}})
}

func (rt *Router) handleServerTools(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := rt.registry.Get(name); !ok {
		writeError(w, api.NewServerNotFoundError(name))
		return
	}
	var tools []api.ToolDescriptor
	for _, t := range rt.catalog.ListTools() {
		if t.ServerName == name {
			tools = append(tools, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

func (rt *Router) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": rt.catalog.ListTools()})
}

func (rt *Router) handleListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": rt.catalog.ListResources()})
}

func (rt *Router) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"prompts": rt.catalog.ListPrompts()})
}

func (rt *Router) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.discovery.ReadManual()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, api.NewError(api.KindConfigInvalid, "malformed JSON body", err))
		return
	}

	result, _, err := rt.discovery.WriteManual(doc)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.apply != nil {
		rt.apply(r.Context(), result)
	}

	updated := len(result.Added) + len(result.Changed) + len(result.Removed)
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"updated_servers": updated}})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(rt.startedAt).String(),
	})
}
