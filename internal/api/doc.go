// Package api holds the types shared across every gateway package:
// declared server intent, aggregated catalog descriptors, the closed error
// taxonomy, and the read-model returned to REST/SSE clients. Keeping these
// in one leaf package avoids import cycles between discovery, registry,
// catalog, and httpapi.
package api
