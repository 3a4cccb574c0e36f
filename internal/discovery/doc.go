// Package discovery scans the fixed set of IDE configuration locations
// described in SPEC_FULL.md §4.1 (cursor, vscode, claude, windsurf,
// continue, manual), parses their heterogeneous mcpServers documents
// tolerantly, and reconciles the result against the previously known set
// of declarations so the Supervisor can start/stop/reconnect sessions.
package discovery
