package network

import (
	"fmt"
	"time"
)

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "ACCT_RPC_URL"
	EnvRPCUser = "ACCT_RPC_USER"
	EnvRPCPass = "ACCT_RPC_PASS"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string        `json:"url"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Network  string        `json:"network"`
	Timeout  time.Duration `json:"timeout"`
}

// Preset returns the local-node defaults for a non-mainnet network.
// Mainnet networks have no preset.
func Preset(p Params) (RPCConfig, bool) {
	if p.Mainnet || p.RPCPort == 0 {
		return RPCConfig{}, false
	}
	return RPCConfig{
		URL:      fmt.Sprintf("http://localhost:%d", p.RPCPort),
		User:     "acct",
		Password: "acct",
		Network:  p.Name,
	}, true
}

// ResolveConfig merges RPC configuration with decreasing priority:
//  1. flags
//  2. environment variables (ACCT_RPC_URL, ACCT_RPC_USER, ACCT_RPC_PASS)
//  3. the network preset (non-mainnet only)
func ResolveConfig(flags *RPCConfig, env map[string]string, p Params) (*RPCConfig, error) {
	result := RPCConfig{Network: p.Name}
	if preset, ok := Preset(p); ok {
		result = preset
	}

	if v := env[EnvRPCURL]; v != "" {
		result.URL = v
	}
	if v := env[EnvRPCUser]; v != "" {
		result.User = v
	}
	if v := env[EnvRPCPass]; v != "" {
		result.Password = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
		if flags.Timeout > 0 {
			result.Timeout = flags.Timeout
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("%w: %s requires explicit RPC configuration (set rpcurl or %s)", ErrInvalidParams, p.Name, EnvRPCURL)
	}
	return &result, nil
}
