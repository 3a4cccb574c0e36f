// Package upstream implements the Transport component: two interchangeable
// carriers (child-process stdio, HTTP+SSE, plus the supplemented
// streamable-http variant) sharing one Client contract, built on
// github.com/mark3labs/mcp-go's client library exactly as the teacher's
// mcpserver client package wraps it.
package upstream
