// Package catalog is the Aggregator: it derives one merged, prefixed view of
// every ready session's tools, resources and prompts, and resolves a
// prefixed id back to the owning server and its original name.
package catalog
