package store

import "errors"

var (
	// ErrTradeNotFound indicates no trade is stored under the id.
	ErrTradeNotFound = errors.New("store: trade not found")

	// ErrDuplicateTrade indicates a trade with this id already exists.
	ErrDuplicateTrade = errors.New("store: duplicate trade")

	// ErrTxNotFound indicates no transaction is stored under the key.
	ErrTxNotFound = errors.New("store: transaction not found")

	// ErrNilParam indicates a required parameter is nil or empty.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrInvalidTxKind indicates an unknown TxKind.
	ErrInvalidTxKind = errors.New("store: invalid transaction kind")

	// ErrCorrupt indicates a stored record cannot be decoded.
	ErrCorrupt = errors.New("store: corrupt record")
)
