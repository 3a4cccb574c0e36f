// Package registry is the authoritative in-memory state for every known
// server: its declaration, its session's cached inventory, and its derived
// ServerStatus projection. All mutation funnels through a single rw-mutex
// with short critical sections (see SPEC_FULL.md §5); reads hold the read
// lock only long enough to copy data out.
package registry
