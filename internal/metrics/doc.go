// ABOUTME: Package metrics exposes Prometheus collectors for RPC calls and view locks.
// ABOUTME: A private registry is served over HTTP with promhttp.

// Package metrics holds the Prometheus instrumentation of the gateway.
//
// Collectors live in a private registry rather than the global default one,
// so tests can create as many Metrics values as they like. A nil *Metrics is
// valid and records nothing.
package metrics
