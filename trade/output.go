package trade

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// OutputRef identifies an on-chain output that funded one leg of a trade.
type OutputRef struct {
	TxID          chainhash.Hash
	Vout          uint32
	Amount        uint64
	LockingScript []byte
}

// Equal reports whether two references describe the same output.
func (o OutputRef) Equal(other OutputRef) bool {
	return o.TxID == other.TxID && o.Vout == other.Vout &&
		o.Amount == other.Amount && bytes.Equal(o.LockingScript, other.LockingScript)
}

func (o OutputRef) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Vout)
}

func (o OutputRef) clone() OutputRef {
	o.LockingScript = bytes.Clone(o.LockingScript)
	return o
}

// ParseTxID decodes a transaction id in display (reversed) hex order.
func ParseTxID(s string) (chainhash.Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: txid: %w", ErrInvalidTrade, err)
	}
	if len(b) != chainhash.HashSize {
		return chainhash.Hash{}, fmt.Errorf("%w: txid must be %d bytes, got %d", ErrInvalidTrade, chainhash.HashSize, len(b))
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	h, err := chainhash.NewHash(b)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: txid: %w", ErrInvalidTrade, err)
	}
	return *h, nil
}
