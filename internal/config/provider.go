package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

// ProjectFile is the project configuration file looked up from the working directory
const ProjectFile = "trebdao.toml"

var defaultArtifactDirs = []string{"artifacts", "out"}

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, ".trebdao"),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		Timeout:        v.GetDuration("timeout"),
	}

	loadEnvFiles(projectRoot)

	file, source, err := loadTrebFile(projectRoot)
	if err != nil {
		return nil, err
	}
	cfg.ConfigSource = source

	dirs := file.Artifacts
	if len(dirs) == 0 {
		dirs = defaultArtifactDirs
	}
	for _, dir := range dirs {
		cfg.ArtifactDirs = append(cfg.ArtifactDirs, absPath(projectRoot, dir))
	}

	cfg.IPFS = config.IPFSConfig{
		APIURL:   file.IPFS.APIURL,
		LocalDir: filepath.Join(cfg.DataDir, "ipfs"),
	}
	if api := v.GetString("ipfs_api"); api != "" {
		cfg.IPFS.APIURL = api
	}
	if file.IPFS.LocalDir != "" {
		cfg.IPFS.LocalDir = absPath(projectRoot, file.IPFS.LocalDir)
	}

	cfg.Senders, err = resolveSenders(file.Senders)
	if err != nil {
		return nil, err
	}
	cfg.Sender, err = defaultSender(cfg.Senders, v.GetString("sender"))
	if err != nil {
		return nil, err
	}

	if networkName := v.GetString("network"); networkName != "" {
		network, err := resolveNetwork(networkName, file.Networks)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from the current directory to find trebdao.toml.
// Without one the working directory is the project root.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("TREBDAO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "30m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	return v
}

func absPath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
