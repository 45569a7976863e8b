// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/acct-go/network"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]logrus.Level{
	"debug": logrus.DebugLevel,
	"info":  logrus.InfoLevel,
	"warn":  logrus.WarnLevel,
	"error": logrus.ErrorLevel,
}

// ValidateConfig checks cfg against networks and returns the first error
// encountered, or nil if valid.
func ValidateConfig(cfg Config, networks *network.Registry) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if _, err := networks.Lookup(cfg.Network); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNetwork, err)
	}

	if cfg.RPCURL != "" {
		if err := validateURL(cfg.RPCURL); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRPCURL, err)
		}
	}

	if _, ok := validLogLevels[strings.ToLower(cfg.LogLevel)]; !ok {
		return ErrInvalidLogLevel
	}

	if cfg.FeeRate == 0 {
		return ErrInvalidFeeRate
	}

	if cfg.MinLockTime <= 0 || cfg.MaxLockTime <= cfg.MinLockTime {
		return fmt.Errorf("%w: min %s, max %s", ErrInvalidLockTime, cfg.MinLockTime, cfg.MaxLockTime)
	}

	return nil
}

// Level returns the logrus level for c.LogLevel.
func (c Config) Level() (logrus.Level, error) {
	lvl, ok := validLogLevels[strings.ToLower(c.LogLevel)]
	if !ok {
		return 0, ErrInvalidLogLevel
	}
	return lvl, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
