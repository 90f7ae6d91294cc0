package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

// loadEnvFiles loads .env files of the project. Variables already set in the
// environment win.
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
		}
	}
}

// loadTrebFile loads and parses trebdao.toml if it exists. A missing file
// yields an empty configuration and an empty source path.
func loadTrebFile(projectRoot string) (*config.TrebFileConfig, string, error) {
	path := filepath.Join(projectRoot, ProjectFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &config.TrebFileConfig{}, "", nil
	}

	var cfg config.TrebFileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}

	cfg.IPFS.APIURL = os.ExpandEnv(cfg.IPFS.APIURL)
	for name, n := range cfg.Networks {
		n.RPCURL = os.ExpandEnv(n.RPCURL)
		cfg.Networks[name] = n
	}
	for name, s := range cfg.Senders {
		s.Address = os.ExpandEnv(s.Address)
		s.PrivateKey = os.ExpandEnv(s.PrivateKey)
		cfg.Senders[name] = s
	}

	return &cfg, path, nil
}
