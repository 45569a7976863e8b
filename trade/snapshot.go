package trade

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
)

// Snapshot is the serialized form of a Trade. Keys, hashes and scripts are
// hex encoded; transaction ids use display order.
type Snapshot struct {
	ID             string         `json:"id"`
	LeadInput      Input          `json:"lead_input"`
	OtherInput     Input          `json:"other_input"`
	MinLockTime    int64          `json:"min_lock_time"`
	MaxLockTime    int64          `json:"max_lock_time"`
	Script         string         `json:"script"`
	SecretHash     string         `json:"secret_hash"`
	LeadPublicKey  string         `json:"lead_public_key"`
	OtherPublicKey string         `json:"other_public_key,omitempty"`
	LockTime       int64          `json:"lock_time,omitempty"`
	Legs           [2]LegSnapshot `json:"legs"`
}

// LegSnapshot is the serialized funding state of one leg.
type LegSnapshot struct {
	FundTxID   string          `json:"fund_txid,omitempty"`
	FundOutput *OutputSnapshot `json:"fund_output,omitempty"`
	Outcome    string          `json:"outcome,omitempty"`
}

// OutputSnapshot is the serialized form of an OutputRef.
type OutputSnapshot struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Amount        uint64 `json:"amount"`
	LockingScript string `json:"locking_script"`
}

// Snapshot returns the serialized form of t.
func (t *Trade) Snapshot() Snapshot {
	s := Snapshot{
		ID:            t.id,
		LeadInput:     t.inputs[0],
		OtherInput:    t.inputs[1],
		MinLockTime:   int64(t.contract.MinLockTime / time.Second),
		MaxLockTime:   int64(t.contract.MaxLockTime / time.Second),
		Script:        t.contract.Script.String(),
		SecretHash:    t.secretHash.String(),
		LeadPublicKey: hex.EncodeToString(t.leadKey.Compressed()),
	}
	if k, ok := t.otherKey.Get(); ok {
		s.OtherPublicKey = hex.EncodeToString(k.Compressed())
	}
	if lt, ok := t.lockTime.Get(); ok {
		s.LockTime = lt.Unix()
	}
	for i := range s.Legs {
		leg := &s.Legs[i]
		if txid, ok := t.fundTxID[i].Get(); ok {
			leg.FundTxID = txid.String()
		}
		if ref, ok := t.fundOutput[i].Get(); ok {
			leg.FundOutput = &OutputSnapshot{
				TxID:          ref.TxID.String(),
				Vout:          ref.Vout,
				Amount:        ref.Amount,
				LockingScript: hex.EncodeToString(ref.LockingScript),
			}
		}
		if o, ok := t.outcome[i].Get(); ok {
			leg.Outcome = o.String()
		}
	}
	return s
}

// Restore rebuilds a Trade from a snapshot. The lock time is restored
// without re-checking the contract window, which only applies when the
// lock time is first negotiated.
func Restore(s Snapshot) (*Trade, error) {
	kind, err := ParseScriptKind(s.Script)
	if err != nil {
		return nil, err
	}
	hash, err := ParseSecretHash(s.SecretHash)
	if err != nil {
		return nil, err
	}
	leadKey, err := ParsePublicKey(s.LeadPublicKey)
	if err != nil {
		return nil, err
	}
	t, err := New(Params{
		ID:         s.ID,
		LeadInput:  s.LeadInput,
		OtherInput: s.OtherInput,
		Contract: Contract{
			MinLockTime: time.Duration(s.MinLockTime) * time.Second,
			MaxLockTime: time.Duration(s.MaxLockTime) * time.Second,
			Script:      kind,
		},
		SecretHash:    hash,
		LeadPublicKey: leadKey,
	})
	if err != nil {
		return nil, err
	}
	if s.OtherPublicKey != "" {
		k, err := ParsePublicKey(s.OtherPublicKey)
		if err != nil {
			return nil, err
		}
		if err := t.SetOtherPublicKey(k); err != nil {
			return nil, err
		}
	}
	if s.LockTime != 0 {
		if err := t.setLockTime(time.Unix(s.LockTime, 0)); err != nil {
			return nil, err
		}
	}
	for i, leg := range s.Legs {
		p := Parties[i]
		if leg.FundTxID != "" {
			txid, err := ParseTxID(leg.FundTxID)
			if err != nil {
				return nil, err
			}
			if err := t.SetFundTxID(p, txid); err != nil {
				return nil, err
			}
		}
		if leg.FundOutput != nil {
			ref, err := leg.FundOutput.outputRef()
			if err != nil {
				return nil, err
			}
			if err := t.SetFundOutput(p, ref); err != nil {
				return nil, err
			}
		}
		if leg.Outcome != "" {
			o, err := parseOutcome(leg.Outcome)
			if err != nil {
				return nil, err
			}
			if err := t.SetOutcome(p, o); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// MarshalJSON encodes t as its Snapshot.
func (t *Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}

// UnmarshalJSON decodes a Snapshot into t.
func (t *Trade) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTrade, err)
	}
	restored, err := Restore(s)
	if err != nil {
		return err
	}
	*t = *restored
	return nil
}

func (o *OutputSnapshot) outputRef() (OutputRef, error) {
	txid, err := ParseTxID(o.TxID)
	if err != nil {
		return OutputRef{}, err
	}
	lockingScript, err := hex.DecodeString(o.LockingScript)
	if err != nil {
		return OutputRef{}, fmt.Errorf("%w: locking script: %w", ErrInvalidTrade, err)
	}
	return OutputRef{TxID: txid, Vout: o.Vout, Amount: o.Amount, LockingScript: lockingScript}, nil
}

// ParsePublicKey decodes a hex encoded compressed or uncompressed public key.
func ParsePublicKey(s string) (*ec.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrInvalidTrade, err)
	}
	k, err := ec.PublicKeyFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrInvalidTrade, err)
	}
	return k, nil
}

func parseOutcome(s string) (Outcome, error) {
	switch s {
	case "refunded":
		return OutcomeRefunded, nil
	case "completed":
		return OutcomeCompleted, nil
	}
	return 0, fmt.Errorf("%w: unknown outcome %q", ErrInvalidTrade, s)
}
