package core

// ArtifactStore persists named byte blobs, such as finalized documents,
// scoped by session. Implementations must be safe for concurrent use; the
// Save/Get/List/Delete names line up with the other store interfaces.
type ArtifactStore interface {
	Save(sessionID, artifactID string, data []byte) error
	Get(sessionID, artifactID string) ([]byte, error)
	List(sessionID string) ([]string, error)
	Delete(sessionID, artifactID string) error
}
