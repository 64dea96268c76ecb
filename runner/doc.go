// Package runner implements the orchestration layer driving agent workflows.
//
// The Runner resolves the root agent, creates run contexts, streams events to
// the caller, applies event side effects (session state, artifacts) and
// persists conversation history. It is the single place where an emitted
// event becomes durable: agents block on their resume signal until the runner
// confirms persistence, which keeps session history consistent even when a
// run is cancelled mid-turn.
//
// Lifecycle hooks (see callbacks.go) let callers observe or veto runs and
// events without modifying orchestration logic.
package runner
