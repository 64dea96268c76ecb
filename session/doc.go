// Package session houses concrete implementations of the core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts. Keeping only implementations here prevents
// higher level packages (agents, runner) from depending on concrete storage.
//
// Two backends are provided: a volatile in-memory store for tests and
// single-process runs, and a Redis store for deployments where workflow state
// must survive process restarts or be shared across nodes.
package session
