// Package supervisor applies reconciliation deltas from Discovery: starting,
// stopping or restarting Sessions, and serializing that work so only one
// reconciliation is ever in flight while the sessions it starts run in
// parallel.
package supervisor
