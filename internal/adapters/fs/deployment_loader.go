package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
	"gopkg.in/yaml.v3"
)

// DeploymentConfigLoader reads deployment configurations. YAML and JSON are
// both accepted since JSON documents are valid YAML.
type DeploymentConfigLoader struct{}

// NewDeploymentConfigLoader creates a new deployment config loader
func NewDeploymentConfigLoader() *DeploymentConfigLoader {
	return &DeploymentConfigLoader{}
}

// Load reads the file at path. ${VAR} references are expanded from the
// environment before decoding; unknown keys are rejected.
func (l *DeploymentConfigLoader) Load(path string) (*config.DeploymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.Configf(path, "deployment configuration not found")
		}
		return nil, fmt.Errorf("failed to read deployment configuration: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)

	var cfg config.DeploymentConfig
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.Configf(path, "deployment configuration is empty")
		}
		return nil, domain.Configf(path, "%v", err)
	}
	if cfg.Name == "" {
		return nil, domain.Configf("name", "deployment name is required")
	}
	return &cfg, nil
}

var _ usecase.DeploymentConfigLoader = (*DeploymentConfigLoader)(nil)
