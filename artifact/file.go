package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore persists artifacts under a root directory, one subdirectory per
// session. Finalized documents written through it survive process restarts
// and can be opened directly by the user.
//
// Layout: root/<sessionID>/<artifactID>
//
// Artifact ids are used as file names verbatim, so they must not contain path
// separators.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed and returns a store
// rooted there.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the base directory artifacts are written under.
func (f *FileStore) Root() string { return f.root }

func (f *FileStore) path(sessionID, artifactID string) (string, error) {
	if err := validateID(sessionID); err != nil {
		return "", err
	}
	if err := validateID(artifactID); err != nil {
		return "", err
	}
	return filepath.Join(f.root, sessionID, artifactID), nil
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid artifact path segment %q", id)
	}
	return nil
}

// Save writes the artifact bytes, creating the session directory on first use.
func (f *FileStore) Save(sessionID, artifactID string, data []byte) error {
	p, err := f.path(sessionID, artifactID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

// Get reads the artifact bytes or returns ErrNotFound.
func (f *FileStore) Get(sessionID, artifactID string) ([]byte, error) {
	p, err := f.path(sessionID, artifactID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns the artifact ids stored for the session in sorted order.
func (f *FileStore) List(sessionID string) ([]string, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(f.root, sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the artifact file or returns ErrNotFound.
func (f *FileStore) Delete(sessionID, artifactID string) error {
	p, err := f.path(sessionID, artifactID)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
