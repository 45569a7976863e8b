package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreset(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		url    string
		ok     bool
	}{
		{"bsv regtest", BSVRegTest, "http://localhost:18443", true},
		{"bsv testnet", BSVTestNet, "http://localhost:18332", true},
		{"bch regtest", BCHRegTest, "http://localhost:18443", true},
		{"bsv mainnet", BSVMainNet, "", false},
		{"bch mainnet", BCHMainNet, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, ok := Preset(tt.params)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.url, preset.URL)
			if ok {
				assert.Equal(t, "acct", preset.User)
				assert.Equal(t, tt.params.Name, preset.Network)
			}
		})
	}
}

func TestResolveConfigFlagsOverrideAll(t *testing.T) {
	flags := &RPCConfig{URL: "http://custom:9999", User: "me", Password: "secret", Timeout: time.Second}
	env := map[string]string{EnvRPCURL: "http://env:1111", EnvRPCUser: "envuser"}
	cfg, err := ResolveConfig(flags, env, BSVRegTest)
	require.NoError(t, err)
	assert.Equal(t, "http://custom:9999", cfg.URL)
	assert.Equal(t, "me", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, "regtest", cfg.Network)
}

func TestResolveConfigEnvOverridesPreset(t *testing.T) {
	env := map[string]string{EnvRPCURL: "http://env:1111", EnvRPCUser: "envuser", EnvRPCPass: "envpass"}
	cfg, err := ResolveConfig(nil, env, BCHTestNet)
	require.NoError(t, err)
	assert.Equal(t, "http://env:1111", cfg.URL)
	assert.Equal(t, "envuser", cfg.User)
	assert.Equal(t, "envpass", cfg.Password)
	assert.Equal(t, "bch-testnet", cfg.Network)
}

func TestResolveConfigPresetOnly(t *testing.T) {
	cfg, err := ResolveConfig(nil, nil, BSVTestNet)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:18332", cfg.URL)
	assert.Equal(t, "acct", cfg.Password)
}

func TestResolveConfigMainnetRequiresURL(t *testing.T) {
	_, err := ResolveConfig(nil, nil, BSVMainNet)
	assert.ErrorIs(t, err, ErrInvalidParams)

	cfg, err := ResolveConfig(nil, map[string]string{EnvRPCURL: "http://node:8332"}, BSVMainNet)
	require.NoError(t, err)
	assert.Equal(t, "http://node:8332", cfg.URL)
	assert.Equal(t, "mainnet", cfg.Network)
	assert.Empty(t, cfg.User)
}
