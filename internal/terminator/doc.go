// Package terminator performs the destructive node shutdown for fault injection.
//
// The Killer has a single operation: enumerate live peers for diagnostic
// logging (best-effort, bounded, failures swallowed), then terminate the
// local node's service runtime through an external process-control command.
// The command is not expected to return cleanly; callers must not rely on
// a result.
//
// Concurrent kills of the same node are idempotent: once a termination has
// started, further invocations are no-ops.
package terminator
