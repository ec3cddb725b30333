// Package cluster provides a best-effort membership registry.
//
// Receiver replicas register themselves on startup and refresh their entry
// with heartbeats. The terminator enumerates live peers for diagnostic
// logging before killing the local node; the listing is never authoritative
// and enumeration failures are not fatal.
//
// # Freshness
//
// A peer counts as live when its last heartbeat is within the configured
// TTL. A background sweeper removes entries silent for more than three
// TTLs so the registry does not grow without bound.
package cluster
