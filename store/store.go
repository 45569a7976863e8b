// Package store persists trades and the transactions built for them.
package store

import (
	"fmt"

	"github.com/bitfsorg/acct-go/trade"
)

// TxKind names a transaction a participant keeps for a trade leg.
type TxKind string

const (
	TxFund       TxKind = "fund"
	TxRefund     TxKind = "refund"
	TxCompletion TxKind = "completion"
)

// Store is a trade repository. Stored trades are copies: mutating a
// returned trade has no effect until it is written back through Update.
type Store interface {
	// Create stores a new trade, failing with ErrDuplicateTrade if its id exists.
	Create(t *trade.Trade) error

	// Get returns the trade stored under id.
	Get(id string) (*trade.Trade, error)

	// Update applies fn to a copy of the stored trade and persists the copy
	// if fn succeeds. Updates to one store are serialized.
	Update(id string, fn func(t *trade.Trade) error) error

	// List returns all stored trades ordered by id.
	List() ([]*trade.Trade, error)

	// Delete removes a trade and its transactions.
	Delete(id string) error

	// PutTx stores the serialized transaction of kind for a trade leg,
	// replacing any previous one.
	PutTx(tradeID string, leg trade.Party, kind TxKind, raw []byte) error

	// GetTx returns the serialized transaction of kind for a trade leg.
	GetTx(tradeID string, leg trade.Party, kind TxKind) ([]byte, error)

	// Close releases the store's resources.
	Close() error
}

// txKey is the composite key tradeID/leg/kind. The trailing separator of
// txPrefix keeps one trade's prefix from matching another id.
func txKey(tradeID string, leg trade.Party, kind TxKind) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", txPrefix(tradeID), leg, kind))
}

func txPrefix(tradeID string) []byte {
	return []byte(tradeID + "/")
}

func checkTxArgs(tradeID string, leg trade.Party, kind TxKind) error {
	if tradeID == "" {
		return fmt.Errorf("%w: trade id", ErrNilParam)
	}
	if !leg.Valid() {
		return fmt.Errorf("%w: %s", trade.ErrInvalidParty, leg)
	}
	switch kind {
	case TxFund, TxRefund, TxCompletion:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTxKind, kind)
}

func encodeTrade(t *trade.Trade) ([]byte, error) {
	data, err := t.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("store: encode trade %s: %w", t.ID(), err)
	}
	return data, nil
}

func decodeTrade(data []byte) (*trade.Trade, error) {
	t := new(trade.Trade)
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return t, nil
}
