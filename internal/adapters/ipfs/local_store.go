package ipfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// LocalStore keeps blobs in a directory, named by their raw CIDv1. It
// yields the same identifiers an IPFS node would for raw leaves.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a store writing under dir
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

func (s *LocalStore) Put(_ context.Context, blob []byte) (models.ContentDigest, error) {
	c, err := rawCID(blob)
	if err != nil {
		return models.ContentDigest{}, err
	}
	name := c.String()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return models.ContentDigest{}, fmt.Errorf("failed to create content directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), blob, 0644); err != nil {
		return models.ContentDigest{}, fmt.Errorf("failed to store content: %w", err)
	}
	return models.ContentDigest{CID: name, Binary: c.Bytes()}, nil
}

var _ usecase.ContentStore = (*LocalStore)(nil)
