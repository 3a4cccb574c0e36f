// Package dispatch exposes the gateway's unified MCP surface: tools/list,
// resources/list, prompts/list served from the Aggregator's snapshot, and
// tools/call, resources/read, prompts/get forwarded to the owning session.
package dispatch
