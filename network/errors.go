package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not connect to the node.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected indicates the node rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrUnknownNetwork indicates a network name missing from the registry.
	ErrUnknownNetwork = errors.New("network: unknown network")

	// ErrInvalidParams indicates malformed network parameters or arguments.
	ErrInvalidParams = errors.New("network: invalid parameters")

	// ErrCircuitOpen indicates calls to a node are suspended after repeated failures.
	ErrCircuitOpen = errors.New("network: circuit open")

	// ErrNotConfirmed indicates a transaction has not been mined yet.
	ErrNotConfirmed = errors.New("network: transaction not confirmed")
)
