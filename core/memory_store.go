package core

// MemoryStore defines persistence plus retrieval (search) for conversational
// memory snippets. Implementations can back search with embeddings, keywords
// or any heuristic. Short method names align with the other *Store interfaces.
type MemoryStore interface {
	Get(sessionID string) (map[string]any, error)
	Put(sessionID string, delta map[string]any) error
	Search(sessionID string, query string, limit int) ([]SearchResult, error)
	Store(sessionID string, content string, metadata map[string]any) error
	Delete(sessionID string, memoryID string) error
}

// SearchResult is one retrieved memory snippet. Score ranks relevance to the
// query; Metadata carries whatever the storing caller attached.
type SearchResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]any
}
