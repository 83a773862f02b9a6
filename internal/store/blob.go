package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vapl/orderdocs/internal/common"
)

// BlobStore resolves an attachment path to its raw bytes. Authorization for
// the path is established upstream.
type BlobStore interface {
	Get(path string) ([]byte, error)
}

// FSBlobStore serves attachments from a root directory on the local
// filesystem.
type FSBlobStore struct {
	root string
}

func NewFSBlobStore(root string) *FSBlobStore {
	return &FSBlobStore{root: root}
}

func (s *FSBlobStore) Get(path string) ([]byte, error) {
	clean := filepath.Clean("/" + path)
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("attachment path %q escapes the store root: %w", path, common.ErrInvalidInput)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("attachment %q: %w", path, common.ErrNotFound)
		}
		return nil, fmt.Errorf("read attachment %q: %w", path, err)
	}
	return data, nil
}
