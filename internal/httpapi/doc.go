// Package httpapi exposes the gateway's management REST surface, the
// /api/v1/events SSE stream, and the unified /api/v1/mcp endpoint that lets
// an MCP client talk to every aggregated server through one connection.
package httpapi
