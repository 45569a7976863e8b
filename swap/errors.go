package swap

import "errors"

var (
	// ErrInvalidConfig indicates a Factory built without its collaborators.
	ErrInvalidConfig = errors.New("swap: invalid factory config")

	// ErrNoChainClient indicates no chain client is registered for a leg's network.
	ErrNoChainClient = errors.New("swap: no chain client for network")

	// ErrInvalidTransaction indicates a transaction that does not have the expected shape.
	ErrInvalidTransaction = errors.New("swap: invalid transaction")

	// ErrInvalidAddress indicates a destination address that cannot be decoded.
	ErrInvalidAddress = errors.New("swap: invalid destination address")

	// ErrAuditFailed indicates a counterparty transaction that does not honour the trade.
	ErrAuditFailed = errors.New("swap: counterparty transaction audit failed")
)
