package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// DescriptorStore persists network descriptors as indented JSON files
type DescriptorStore struct{}

// NewDescriptorStore creates a new descriptor store
func NewDescriptorStore() *DescriptorStore {
	return &DescriptorStore{}
}

// Write saves the descriptor, creating parent directories as needed
func (s *DescriptorStore) Write(path string, descriptor *models.NetworkDescriptor) error {
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// An interrupted write never leaves a partial descriptor behind
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	return nil
}

// Read loads a descriptor written by an earlier run
func (s *DescriptorStore) Read(path string) (*models.NetworkDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var descriptor models.NetworkDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return &descriptor, nil
}

var _ usecase.DescriptorStore = (*DescriptorStore)(nil)
