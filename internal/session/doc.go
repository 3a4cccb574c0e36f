// Package session drives the lifecycle of one upstream MCP connection: the
// initial handshake, periodic health pings, inventory refresh, and
// exponential-backoff reconnection after a transport failure.
package session
