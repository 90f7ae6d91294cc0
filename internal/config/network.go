package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

const localRPC = "http://127.0.0.1:8545"

// devNetworks are usable without configuration. They point at a local node
// that signs for its accounts and lets the clock be advanced.
var devNetworks = map[string]config.NetworkConfig{
	"localhost": {RPCURL: localRPC, Unlocked: true, Dev: true},
	"hardhat":   {RPCURL: localRPC, ChainID: 31337, Unlocked: true, Dev: true},
	"anvil":     {RPCURL: localRPC, ChainID: 31337, Unlocked: true, Dev: true},
}

// RPCEnvVar returns the variable consulted when a network has no rpc_url.
// Examples: sepolia -> SEPOLIA_RPC_URL, gnosis-chain -> GNOSIS_CHAIN_RPC_URL
func RPCEnvVar(networkName string) string {
	name := strings.ToUpper(networkName)
	name = strings.NewReplacer("-", "_", ".", "_").Replace(name)
	return name + "_RPC_URL"
}

// resolveNetwork builds the network selected on the command line
func resolveNetwork(name string, networks map[string]config.NetworkConfig) (*config.Network, error) {
	nc, ok := networks[name]
	if !ok {
		nc, ok = devNetworks[name]
	}
	if !ok && os.Getenv(RPCEnvVar(name)) == "" {
		return nil, domain.Configf("networks."+name, "network not found in %s and %s is not set", ProjectFile, RPCEnvVar(name))
	}

	if nc.RPCURL == "" {
		nc.RPCURL = os.Getenv(RPCEnvVar(name))
	}
	if nc.RPCURL == "" {
		return nil, domain.Configf("networks."+name+".rpc_url", "rpc_url is required (or set %s)", RPCEnvVar(name))
	}

	network := &config.Network{
		Name:          name,
		ChainID:       nc.ChainID,
		RPCURL:        nc.RPCURL,
		Confirmations: nc.Confirmations,
		Unlocked:      nc.Unlocked,
		Dev:           nc.Dev,
	}

	var err error
	if network.PollInterval, err = parseDuration(nc.PollInterval); err != nil {
		return nil, domain.Configf("networks."+name+".poll_interval", "%v", err)
	}
	if network.ConfirmTimeout, err = parseDuration(nc.ConfirmTimeout); err != nil {
		return nil, domain.Configf("networks."+name+".confirm_timeout", "%v", err)
	}
	return network, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
