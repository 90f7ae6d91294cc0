package config

// TrebFileConfig represents the trebdao.toml project file
type TrebFileConfig struct {
	Artifacts []string                 `toml:"artifacts,omitempty"`
	IPFS      IPFSFileConfig           `toml:"ipfs"`
	Networks  map[string]NetworkConfig `toml:"networks"`
	Senders   map[string]SenderConfig  `toml:"senders"`
}

// IPFSFileConfig represents the [ipfs] section
type IPFSFileConfig struct {
	APIURL   string `toml:"api_url,omitempty"`
	LocalDir string `toml:"local_dir,omitempty"`
}

// NetworkConfig represents a [networks.<name>] section
type NetworkConfig struct {
	RPCURL         string `toml:"rpc_url"`
	ChainID        uint64 `toml:"chain_id,omitempty"`
	Confirmations  uint64 `toml:"confirmations,omitempty"`
	PollInterval   string `toml:"poll_interval,omitempty"`
	ConfirmTimeout string `toml:"confirm_timeout,omitempty"`
	Unlocked       bool   `toml:"unlocked,omitempty"`
	Dev            bool   `toml:"dev,omitempty"`
}
