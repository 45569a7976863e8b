package store

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/bitfsorg/acct-go/trade"
)

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu     sync.Mutex
	trades map[string]*trade.Trade
	txs    map[string][]byte
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		trades: make(map[string]*trade.Trade),
		txs:    make(map[string][]byte),
	}
}

func (s *MemStore) Create(t *trade.Trade) error {
	if t == nil {
		return fmt.Errorf("%w: trade", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[t.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTrade, t.ID())
	}
	s.trades[t.ID()] = t.Clone()
	return nil
}

func (s *MemStore) Get(id string) (*trade.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	return t.Clone(), nil
}

func (s *MemStore) Update(id string, fn func(t *trade.Trade) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trades[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	c := t.Clone()
	if err := fn(c); err != nil {
		return err
	}
	if c.ID() != id {
		return fmt.Errorf("store: update changed trade id %s to %s", id, c.ID())
	}
	s.trades[id] = c
	return nil
}

func (s *MemStore) List() ([]*trade.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trades := make([]*trade.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		trades = append(trades, t.Clone())
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID() < trades[j].ID() })
	return trades, nil
}

func (s *MemStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
	}
	delete(s.trades, id)
	prefix := txPrefix(id)
	for k := range s.txs {
		if bytes.HasPrefix([]byte(k), prefix) {
			delete(s.txs, k)
		}
	}
	return nil
}

func (s *MemStore) PutTx(tradeID string, leg trade.Party, kind TxKind, raw []byte) error {
	if err := checkTxArgs(tradeID, leg, kind); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: raw transaction", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trades[tradeID]; !ok {
		return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	s.txs[string(txKey(tradeID, leg, kind))] = bytes.Clone(raw)
	return nil
}

func (s *MemStore) GetTx(tradeID string, leg trade.Party, kind TxKind) ([]byte, error) {
	if err := checkTxArgs(tradeID, leg, kind); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.txs[string(txKey(tradeID, leg, kind))]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrTxNotFound, tradeID, leg, kind)
	}
	return bytes.Clone(raw), nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }
