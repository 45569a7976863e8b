// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidNetwork indicates the network name is not in the network registry.
	ErrInvalidNetwork = errors.New("config: invalid network")

	// ErrInvalidRPCURL indicates the RPC endpoint is not an http(s) URL.
	ErrInvalidRPCURL = errors.New("config: invalid RPC URL")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrInvalidLockTime indicates the lock time window is empty or inverted.
	ErrInvalidLockTime = errors.New("config: invalid lock time window")

	// ErrInvalidFeeRate indicates a zero fee rate.
	ErrInvalidFeeRate = errors.New("config: fee rate must be positive")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")
)
