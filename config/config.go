// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads the acct command configuration from a key = value
// file in the data directory, with ACCT_* environment variables taking
// precedence over the file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"

	"github.com/bitfsorg/acct-go/trade"
)

// Configuration keys, as written in the file.
const (
	DataDirKey          = "datadir"
	NetworkKey          = "network"
	LogLevelKey         = "loglevel"
	LogFileKey          = "logfile"
	RPCURLKey           = "rpcurl"
	RPCUserKey          = "rpcuser"
	RPCPasswordKey      = "rpcpassword"
	FeeRateKey          = "feerate"
	MinLockTimeKey      = "minlocktime"
	MaxLockTimeKey      = "maxlocktime"
	MinConfirmationsKey = "minconfirmations"
	PollIntervalKey     = "pollinterval"

	configFileName = "config"
	dbFileName     = "trades.db"
)

// Config is the acct runtime configuration.
type Config struct {
	DataDir          string
	Network          string
	LogLevel         string
	LogFile          string
	RPCURL           string
	RPCUser          string
	RPCPassword      string
	FeeRate          uint64 // satoshis per 1000 bytes
	MinLockTime      time.Duration
	MaxLockTime      time.Duration
	MinConfirmations int64
	PollInterval     time.Duration
}

// DefaultDataDir returns the platform application data directory for acct.
func DefaultDataDir() string {
	return btcutil.AppDataDir("acct", false)
}

// DefaultConfig returns the configuration used for keys absent from the file.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Network:          "mainnet",
		LogLevel:         "info",
		FeeRate:          1000,
		MinLockTime:      trade.DefaultMinLockTime,
		MaxLockTime:      trade.DefaultMaxLockTime,
		MinConfirmations: 1,
		PollInterval:     30 * time.Second,
	}
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// DBPath returns the trade database path inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, dbFileName)
}

// newViper returns a viper instance seeded with defaults and bound to the
// ACCT_* environment. RPC credentials use the same variables as the
// network package.
func newViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault(DataDirKey, def.DataDir)
	v.SetDefault(NetworkKey, def.Network)
	v.SetDefault(LogLevelKey, def.LogLevel)
	v.SetDefault(LogFileKey, def.LogFile)
	v.SetDefault(FeeRateKey, def.FeeRate)
	v.SetDefault(MinLockTimeKey, def.MinLockTime)
	v.SetDefault(MaxLockTimeKey, def.MaxLockTime)
	v.SetDefault(MinConfirmationsKey, def.MinConfirmations)
	v.SetDefault(PollIntervalKey, def.PollInterval)

	v.SetEnvPrefix("ACCT")
	v.AutomaticEnv()
	_ = v.BindEnv(RPCURLKey, "ACCT_RPC_URL")
	_ = v.BindEnv(RPCUserKey, "ACCT_RPC_USER")
	_ = v.BindEnv(RPCPasswordKey, "ACCT_RPC_PASS")
	return v
}

// LoadConfig reads the file at path. Keys missing from the file keep their
// defaults, unknown keys are ignored, and ACCT_* variables override both.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	values := make(map[string]interface{})
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d: %q", err, lineNo, line)
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	v := newViper()
	if err := v.MergeConfigMap(values); err != nil {
		return Config{}, fmt.Errorf("config: merge %s: %w", path, err)
	}
	return fromViper(v), nil
}

// LoadOrDefault loads the file at path, falling back to the defaults plus
// environment when it does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := LoadConfig(path)
	if errors.Is(err, ErrConfigNotFound) {
		return fromViper(newViper()), nil
	}
	return cfg, err
}

func fromViper(v *viper.Viper) Config {
	return Config{
		DataDir:          v.GetString(DataDirKey),
		Network:          v.GetString(NetworkKey),
		LogLevel:         v.GetString(LogLevelKey),
		LogFile:          v.GetString(LogFileKey),
		RPCURL:           v.GetString(RPCURLKey),
		RPCUser:          v.GetString(RPCUserKey),
		RPCPassword:      v.GetString(RPCPasswordKey),
		FeeRate:          v.GetUint64(FeeRateKey),
		MinLockTime:      v.GetDuration(MinLockTimeKey),
		MaxLockTime:      v.GetDuration(MaxLockTimeKey),
		MinConfirmations: v.GetInt64(MinConfirmationsKey),
		PollInterval:     v.GetDuration(PollIntervalKey),
	}
}

// parseKeyValue splits "key = value" on the first '='. Keys are case-insensitive.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

// SaveConfig writes cfg to path, creating the parent directory. The file
// is readable only by its owner because it may hold RPC credentials.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# acct configuration\n")
	b.WriteString("# ACCT_<KEY> environment variables override these values.\n\n")
	write := func(key string, value interface{}) {
		fmt.Fprintf(&b, "%s = %v\n", key, value)
	}
	write(DataDirKey, cfg.DataDir)
	write(NetworkKey, cfg.Network)
	write(LogLevelKey, cfg.LogLevel)
	write(LogFileKey, cfg.LogFile)
	write(RPCURLKey, cfg.RPCURL)
	write(RPCUserKey, cfg.RPCUser)
	write(RPCPasswordKey, cfg.RPCPassword)
	write(FeeRateKey, cfg.FeeRate)
	write(MinLockTimeKey, cfg.MinLockTime)
	write(MaxLockTimeKey, cfg.MaxLockTime)
	write(MinConfirmationsKey, cfg.MinConfirmations)
	write(PollIntervalKey, cfg.PollInterval)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Contract returns the trade contract with cfg's lock time window.
func (c Config) Contract(kind trade.ScriptKind) (trade.Contract, error) {
	return trade.NewContract(c.MinLockTime, c.MaxLockTime, kind)
}
