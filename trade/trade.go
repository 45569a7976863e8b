// Package trade holds the data model of a two-party cross-chain swap: the
// parties, the input each commits, the contract terms, the shared secret
// hash and the fields filled in as negotiation and funding progress.
//
// A Trade performs no locking. Callers serialize mutations of a given trade
// and hand consistent snapshots to the script and transaction builders.
package trade

import (
	"fmt"
	"math"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/google/uuid"
)

// Input is the amount one party commits on one network.
type Input struct {
	Network string `json:"network"`
	Amount  uint64 `json:"amount"`
}

// Outcome is how a funded leg was settled.
type Outcome uint8

const (
	OutcomeRefunded Outcome = iota + 1
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRefunded:
		return "refunded"
	case OutcomeCompleted:
		return "completed"
	default:
		return ""
	}
}

// Stage is the lifecycle position of one trade leg.
type Stage uint8

const (
	StageNegotiating Stage = iota
	StageReady
	StageFunding
	StageFunded
	StageRefunded
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageNegotiating:
		return "negotiating"
	case StageReady:
		return "ready"
	case StageFunding:
		return "funding"
	case StageFunded:
		return "funded"
	case StageRefunded:
		return "refunded"
	case StageCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// Params are the terms agreed when a trade is created.
type Params struct {
	// ID is generated when empty.
	ID            string
	LeadInput     Input
	OtherInput    Input
	Contract      Contract
	SecretHash    SecretHash
	LeadPublicKey *ec.PublicKey
}

// Trade is a negotiated swap. Core terms are fixed at construction; the
// counterparty key, lock time and per-leg funding data are write-once.
type Trade struct {
	id         string
	inputs     [2]Input
	contract   Contract
	secretHash SecretHash
	leadKey    *ec.PublicKey

	otherKey Once[*ec.PublicKey]
	lockTime Once[time.Time]

	fundTxID   [2]Once[chainhash.Hash]
	fundOutput [2]Once[OutputRef]
	outcome    [2]Once[Outcome]
}

// New validates p and returns a trade in the negotiating stage.
func New(p Params) (*Trade, error) {
	if p.LeadPublicKey == nil {
		return nil, fmt.Errorf("%w: lead public key is required", ErrInvalidTrade)
	}
	if p.SecretHash.IsZero() {
		return nil, fmt.Errorf("%w: secret hash is required", ErrInvalidTrade)
	}
	for _, in := range []Input{p.LeadInput, p.OtherInput} {
		if in.Network == "" {
			return nil, fmt.Errorf("%w: input network is required", ErrInvalidTrade)
		}
		if in.Amount == 0 {
			return nil, fmt.Errorf("%w: input amount must be > 0", ErrInvalidTrade)
		}
	}
	if err := p.Contract.Validate(); err != nil {
		return nil, err
	}
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &Trade{
		id:         id,
		inputs:     [2]Input{p.LeadInput, p.OtherInput},
		contract:   p.Contract,
		secretHash: p.SecretHash,
		leadKey:    p.LeadPublicKey,
	}, nil
}

// ID returns the trade identifier.
func (t *Trade) ID() string { return t.id }

// Contract returns the negotiated contract.
func (t *Trade) Contract() Contract { return t.contract }

// SecretHash returns the hash of the lead party's secret.
func (t *Trade) SecretHash() SecretHash { return t.secretHash }

// Input returns the input committed by p, or the zero Input for an
// invalid role.
func (t *Trade) Input(p Party) Input {
	i, err := p.index()
	if err != nil {
		return Input{}
	}
	return t.inputs[i]
}

// PublicKey returns p's public key, or ErrMissingCounterpartyKey when the
// other party has not supplied one yet.
func (t *Trade) PublicKey(p Party) (*ec.PublicKey, error) {
	i, err := p.index()
	if err != nil {
		return nil, err
	}
	if i == 0 {
		return t.leadKey, nil
	}
	k, ok := t.otherKey.Get()
	if !ok {
		return nil, ErrMissingCounterpartyKey
	}
	return k, nil
}

// SetOtherPublicKey records the other party's key.
func (t *Trade) SetOtherPublicKey(k *ec.PublicKey) error {
	if k == nil {
		return fmt.Errorf("%w: nil public key", ErrInvalidTrade)
	}
	if err := t.otherKey.Set(k); err != nil {
		return fmt.Errorf("other public key: %w", err)
	}
	return nil
}

// LockTime returns the agreed refund lock time.
func (t *Trade) LockTime() (time.Time, error) {
	lt, ok := t.lockTime.Get()
	if !ok {
		return time.Time{}, ErrMissingLockTime
	}
	return lt, nil
}

// LockTimeValue returns the lock time as a transaction nLockTime value.
func (t *Trade) LockTimeValue() (uint32, error) {
	lt, err := t.LockTime()
	if err != nil {
		return 0, err
	}
	return uint32(lt.Unix()), nil
}

// SetLockTime records lockTime after checking it against the contract
// window relative to now. The value is truncated to whole seconds.
func (t *Trade) SetLockTime(lockTime, now time.Time) error {
	if err := t.contract.CheckLockTime(lockTime, now); err != nil {
		return err
	}
	return t.setLockTime(lockTime)
}

func (t *Trade) setLockTime(lockTime time.Time) error {
	// nLockTime values below 500000000 are block heights.
	unix := lockTime.Unix()
	if unix < 500_000_000 || unix > math.MaxUint32 {
		return fmt.Errorf("%w: %s not representable as nLockTime", ErrLockTimeOutOfRange, lockTime)
	}
	if err := t.lockTime.Set(time.Unix(unix, 0).UTC()); err != nil {
		return fmt.Errorf("lock time: %w", err)
	}
	return nil
}

// FundTxID returns the id of the transaction broadcast to fund leg p.
func (t *Trade) FundTxID(p Party) (chainhash.Hash, bool) {
	i, err := p.index()
	if err != nil {
		return chainhash.Hash{}, false
	}
	return t.fundTxID[i].Get()
}

// SetFundTxID records the fund transaction broadcast for leg p.
func (t *Trade) SetFundTxID(p Party, txid chainhash.Hash) error {
	i, err := p.index()
	if err != nil {
		return err
	}
	if err := t.fundTxID[i].Set(txid); err != nil {
		return fmt.Errorf("%s fund txid: %w", p, err)
	}
	return nil
}

// FundOutput returns the confirmed output funding leg p.
func (t *Trade) FundOutput(p Party) (OutputRef, error) {
	i, err := p.index()
	if err != nil {
		return OutputRef{}, err
	}
	ref, ok := t.fundOutput[i].Get()
	if !ok {
		return OutputRef{}, fmt.Errorf("%w: %s leg", ErrNoFundTransaction, p)
	}
	return ref.clone(), nil
}

// SetFundOutput records the confirmed output funding leg p. If a fund
// transaction id was recorded, the output must belong to it.
func (t *Trade) SetFundOutput(p Party, ref OutputRef) error {
	i, err := p.index()
	if err != nil {
		return err
	}
	if txid, ok := t.fundTxID[i].Get(); ok && txid != ref.TxID {
		return fmt.Errorf("%w: %s leg expects %s, got %s", ErrFundOutputMismatch, p, txid, ref.TxID)
	}
	if err := t.fundOutput[i].Set(ref.clone()); err != nil {
		return fmt.Errorf("%s fund output: %w", p, err)
	}
	return nil
}

// Outcome returns how leg p was settled.
func (t *Trade) Outcome(p Party) (Outcome, bool) {
	i, err := p.index()
	if err != nil {
		return 0, false
	}
	return t.outcome[i].Get()
}

// SetOutcome records the settlement of leg p, which must be funded.
func (t *Trade) SetOutcome(p Party, o Outcome) error {
	i, err := p.index()
	if err != nil {
		return err
	}
	if o != OutcomeRefunded && o != OutcomeCompleted {
		return fmt.Errorf("%w: unknown outcome %d", ErrInvalidTrade, o)
	}
	if !t.fundOutput[i].IsSet() {
		return fmt.Errorf("%w: %s leg", ErrNoFundTransaction, p)
	}
	if err := t.outcome[i].Set(o); err != nil {
		return fmt.Errorf("%s outcome: %w", p, err)
	}
	return nil
}

// Stage returns the lifecycle stage of leg p. An invalid role reports
// StageNegotiating, from which no transaction can be built.
func (t *Trade) Stage(p Party) Stage {
	i, err := p.index()
	switch {
	case err != nil, !t.otherKey.IsSet():
		return StageNegotiating
	case t.outcome[i].IsSet():
		if o, _ := t.outcome[i].Get(); o == OutcomeCompleted {
			return StageCompleted
		}
		return StageRefunded
	case t.fundOutput[i].IsSet():
		return StageFunded
	case t.fundTxID[i].IsSet():
		return StageFunding
	default:
		return StageReady
	}
}

// RequireFunded returns the fund output of leg p when the leg is funded
// and not yet settled.
func (t *Trade) RequireFunded(p Party) (OutputRef, error) {
	if _, err := p.index(); err != nil {
		return OutputRef{}, err
	}
	switch t.Stage(p) {
	case StageNegotiating:
		return OutputRef{}, ErrMissingCounterpartyKey
	case StageRefunded, StageCompleted:
		return OutputRef{}, fmt.Errorf("%w: %s leg", ErrTradeSettled, p)
	}
	return t.FundOutput(p)
}

// Clone returns an independent copy of t.
func (t *Trade) Clone() *Trade {
	c := *t
	for i := range c.fundOutput {
		if ref, ok := t.fundOutput[i].Get(); ok {
			c.fundOutput[i] = Once[OutputRef]{}
			_ = c.fundOutput[i].Set(ref.clone())
		}
	}
	return &c
}

// index returns the slot of p in the per-leg arrays.
func (p Party) index() (int, error) {
	switch p {
	case Lead:
		return 0, nil
	case Other:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidParty, uint8(p))
}
