// Package memory contains concrete MemoryStore implementations. The store
// interface and SearchResult type reside in the core package; depend on
// core.MemoryStore and select an implementation at wiring time.
//
// Workflows use memory to retain material across runs that does not belong in
// the session transcript, such as collected feedback or research notes.
// Pluggable backends (vector databases, embedding indexes) can be added here
// without introducing dependency cycles.
package memory
