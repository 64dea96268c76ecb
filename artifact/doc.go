// Package artifact contains concrete implementations of core.ArtifactStore.
//
// Workflows use artifacts to persist produced documents (plans, drafts,
// finalized reports) keyed by session. The canonical ArtifactStore interface
// lives in the core package to avoid dependency cycles; implementation
// packages like this one provide storage backends that can be swapped without
// touching calling code.
//
// Two backends are provided: an in-memory store for tests and single-process
// runs, and a filesystem store that writes finalized documents to a local
// directory so they survive process restarts.
package artifact
