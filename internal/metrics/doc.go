// Package metrics provides latency and rate diagnostics for the probe loop.
//
// The Tracker records round-trip latencies of successful probes and the
// send rate of the current window. It deliberately does not own the
// success/failure ledger: those counters live in the prober itself and
// are reset on its terms. Tracker values are diagnostic only.
package metrics
