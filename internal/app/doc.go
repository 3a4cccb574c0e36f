// Package app bootstraps the gateway: it reads environment configuration,
// wires Discovery, Registry, Catalog, Supervisor, Dispatcher and Event Bus
// together, and runs the HTTP server until the process is asked to stop.
// It is the only package that knows about every other internal package at
// once; everything else composes through narrow interfaces.
package app
