package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/acct-go/trade"
)

var (
	bucketTrades = []byte("trades")
	bucketTxs    = []byte("txs")
)

// BoltStore keeps trades as JSON snapshots in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath, creating the
// parent directory if needed. It fails if another process holds the
// database for longer than one second.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTrades, bucketTxs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Create(t *trade.Trade) error {
	if t == nil {
		return fmt.Errorf("%w: trade", ErrNilParam)
	}
	data, err := encodeTrade(t)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTrades)
		if b.Get([]byte(t.ID())) != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateTrade, t.ID())
		}
		return b.Put([]byte(t.ID()), data)
	})
}

func (s *BoltStore) Get(id string) (*trade.Trade, error) {
	var t *trade.Trade
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTrades).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
		}
		var err error
		t, err = decodeTrade(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *BoltStore) Update(id string, fn func(t *trade.Trade) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTrades)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
		}
		t, err := decodeTrade(data)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if t.ID() != id {
			return fmt.Errorf("store: update changed trade id %s to %s", id, t.ID())
		}
		out, err := encodeTrade(t)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}

func (s *BoltStore) List() ([]*trade.Trade, error) {
	var trades []*trade.Trade
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTrades).ForEach(func(k, v []byte) error {
			t, err := decodeTrade(v)
			if err != nil {
				return fmt.Errorf("trade %s: %w", k, err)
			}
			trades = append(trades, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: list trades: %w", err)
	}
	return trades, nil
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTrades)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, id)
		}
		if err := b.Delete([]byte(id)); err != nil {
			return fmt.Errorf("store: delete trade: %w", err)
		}

		txs := tx.Bucket(bucketTxs)
		prefix := txPrefix(id)
		var toDelete [][]byte
		c := txs.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			toDelete = append(toDelete, bytes.Clone(k))
		}
		for _, k := range toDelete {
			if err := txs.Delete(k); err != nil {
				return fmt.Errorf("store: delete transaction %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) PutTx(tradeID string, leg trade.Party, kind TxKind, raw []byte) error {
	if err := checkTxArgs(tradeID, leg, kind); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: raw transaction", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketTrades).Get([]byte(tradeID)) == nil {
			return fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
		}
		return tx.Bucket(bucketTxs).Put(txKey(tradeID, leg, kind), raw)
	})
}

func (s *BoltStore) GetTx(tradeID string, leg trade.Party, kind TxKind) ([]byte, error) {
	if err := checkTxArgs(tradeID, leg, kind); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTxs).Get(txKey(tradeID, leg, kind))
		if data == nil {
			return fmt.Errorf("%w: %s %s %s", ErrTxNotFound, tradeID, leg, kind)
		}
		// bbolt values are only valid for the life of the transaction.
		raw = bytes.Clone(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}
