// Package swap builds the transactions of a swap's life cycle: funding a
// contract output, refunding it to its sender and completing it by
// revealing the secret. Input selection, change and signing are delegated
// to the ChainClient and Signer collaborators.
//
// A Factory holds no mutable state. It may be shared between goroutines as
// long as the trades passed to it are not mutated during a call.
package swap

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/network"
	"github.com/bitfsorg/acct-go/trade"
)

// ChainClient is the wallet-side view of one network.
type ChainClient interface {
	// CompleteAndFund adds inputs and change to tx so that it pays its
	// outputs plus fees, signs the added inputs, and returns the result
	// without broadcasting it. It fails with trade.ErrInsufficientFunds
	// when the wallet cannot cover the outputs.
	CompleteAndFund(ctx context.Context, tx *transaction.Transaction) (*transaction.Transaction, error)

	// LookupConfirmedOutput returns the confirmed output funding leg of t,
	// or nil when none has been observed.
	LookupConfirmedOutput(ctx context.Context, t *trade.Trade, leg trade.Party) (*trade.OutputRef, error)
}

// Signer produces signatures with keys it holds.
type Signer interface {
	// Sign returns a DER signature plus SIGHASH_ALL|FORKID byte over input
	// inputIndex of tx, which spends an output locked by lockScript. It
	// fails with trade.ErrKeyUnavailable when keyID cannot be used.
	Sign(lockScript *script.Script, tx *transaction.Transaction, inputIndex uint32, keyID string) ([]byte, error)
}

// Config wires a Factory to its collaborators.
type Config struct {
	Networks *network.Registry
	// Chains maps network names to their chain clients.
	Chains  map[string]ChainClient
	Signer  Signer
	FeeRate FeeRate
}

// Factory builds swap transactions.
type Factory struct {
	networks *network.Registry
	chains   map[string]ChainClient
	signer   Signer
	feeRate  FeeRate
}

// NewFactory validates cfg and returns a Factory. A zero FeeRate selects DefaultFeeRate.
func NewFactory(cfg Config) (*Factory, error) {
	if cfg.Networks == nil {
		return nil, fmt.Errorf("%w: network registry is required", ErrInvalidConfig)
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("%w: signer is required", ErrInvalidConfig)
	}
	chains := make(map[string]ChainClient, len(cfg.Chains))
	for name, c := range cfg.Chains {
		if _, err := cfg.Networks.Lookup(name); err != nil {
			return nil, fmt.Errorf("%w: chain client for %w", ErrInvalidConfig, err)
		}
		chains[name] = c
	}
	feeRate := cfg.FeeRate
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return &Factory{networks: cfg.Networks, chains: chains, signer: cfg.Signer, feeRate: feeRate}, nil
}

// FeeRate returns the rate applied to refund and completion transactions.
func (f *Factory) FeeRate() FeeRate { return f.feeRate }

// legNetwork resolves the network leg of t executes on and checks that it
// can carry the trade's script strategy.
func (f *Factory) legNetwork(t *trade.Trade, leg trade.Party) (network.Params, error) {
	if !leg.Valid() {
		return network.Params{}, trade.ErrInvalidParty
	}
	params, err := f.networks.Lookup(t.Input(leg).Network)
	if err != nil {
		return network.Params{}, err
	}
	if t.Contract().Script == trade.ScriptTimeLocked && !params.SupportsCLTV {
		return network.Params{}, fmt.Errorf("%w: %s contracts on %s", trade.ErrNotSupported, trade.ScriptTimeLocked, params.Name)
	}
	return params, nil
}

// CheckTrade reports whether both legs of t can be executed by f.
func (f *Factory) CheckTrade(t *trade.Trade) error {
	for _, p := range trade.Parties {
		if _, err := f.legNetwork(t, p); err != nil {
			return fmt.Errorf("%s leg: %w", p, err)
		}
	}
	return nil
}

// BuildFundTransaction returns a funded, unbroadcast transaction paying
// actingAs's committed amount into the contract for its leg.
func (f *Factory) BuildFundTransaction(ctx context.Context, t *trade.Trade, actingAs trade.Party) (*transaction.Transaction, error) {
	params, err := f.legNetwork(t, actingAs)
	if err != nil {
		return nil, err
	}
	lock, err := htlc.BuildLockScript(t, actingAs)
	if err != nil {
		return nil, err
	}
	chain, ok := f.chains[params.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoChainClient, params.Name)
	}

	amount := t.Input(actingAs).Amount
	tx := transaction.NewTransaction()
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: amount, LockingScript: lock})

	funded, err := chain.CompleteAndFund(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("fund %s leg: %w", actingAs, err)
	}
	if _, err := findContractOutput(funded, lock, amount); err != nil {
		return nil, fmt.Errorf("%w: chain client dropped the contract output: %w", ErrInvalidTransaction, err)
	}
	return funded, nil
}

// BuildUnsignedRefundTransaction spends actingAs's confirmed fund output
// back to address. The transaction carries the trade lock time and a
// non-final sequence so it cannot confirm before the lock time.
func (f *Factory) BuildUnsignedRefundTransaction(t *trade.Trade, actingAs trade.Party, address string) (*transaction.Transaction, error) {
	if _, err := f.legNetwork(t, actingAs); err != nil {
		return nil, err
	}
	fund, err := t.RequireFunded(actingAs)
	if err != nil {
		return nil, err
	}
	lockTime, err := t.LockTimeValue()
	if err != nil {
		return nil, err
	}
	lock, err := fundLockScript(t, actingAs, fund)
	if err != nil {
		return nil, err
	}
	unlockLen := cooperativeRefundUnlockLen
	if t.Contract().Script == trade.ScriptTimeLocked {
		unlockLen = timeLockedRefundUnlockLen
	}
	return f.spendTx(fund, lock, address, unlockLen, lockTime, transaction.DefaultSequenceNumber-1)
}

// SignTransaction signs input inputIndex of tx, which spends the contract
// output of leg, with the key behind keyID.
func (f *Factory) SignTransaction(t *trade.Trade, leg trade.Party, tx *transaction.Transaction, inputIndex uint32, keyID string) ([]byte, error) {
	if !leg.Valid() {
		return nil, trade.ErrInvalidParty
	}
	if tx == nil || int(inputIndex) >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: no input %d", ErrInvalidTransaction, inputIndex)
	}
	lock, err := htlc.BuildLockScript(t, leg)
	if err != nil {
		return nil, err
	}
	input := tx.Inputs[inputIndex]
	if input.SourceTxOutput() == nil {
		fund, err := t.FundOutput(leg)
		if err != nil {
			return nil, err
		}
		input.SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: fund.Amount, LockingScript: lock})
	}
	sig, err := f.signer.Sign(lock, tx, inputIndex, keyID)
	if err != nil {
		return nil, fmt.Errorf("sign %s leg input %d: %w", leg, inputIndex, err)
	}
	return sig, nil
}

// BuildRefundScriptSignature assembles the refund unlocking script for the
// leg actingAs funded. mySig is the sender's signature, theirSig the
// recipient's; time-locked contracts need only mySig.
func (f *Factory) BuildRefundScriptSignature(t *trade.Trade, actingAs trade.Party, mySig, theirSig []byte) (*script.Script, error) {
	if !actingAs.Valid() {
		return nil, trade.ErrInvalidParty
	}
	return htlc.RefundScript(t.Contract().Script, mySig, theirSig)
}

// BuildCompletionScriptSignature signs input inputIndex of tx, which spends
// the leg funded by the opposite party, and assembles the claim unlocking
// script revealing secret.
func (f *Factory) BuildCompletionScriptSignature(t *trade.Trade, actingAs trade.Party, tx *transaction.Transaction, inputIndex uint32, keyID string, secret []byte) (*script.Script, error) {
	if !actingAs.Valid() {
		return nil, trade.ErrInvalidParty
	}
	if err := t.SecretHash().Check(secret); err != nil {
		return nil, err
	}
	sig, err := f.SignTransaction(t, actingAs.Opposite(), tx, inputIndex, keyID)
	if err != nil {
		return nil, err
	}
	return htlc.ClaimScript(t.Contract().Script, sig, secret)
}

// BuildCompletionTransaction claims the opposite party's fund output for
// actingAs, revealing secret, and pays it to address. The returned
// transaction is signed and verified against the contract script.
func (f *Factory) BuildCompletionTransaction(t *trade.Trade, actingAs trade.Party, secret []byte, address, keyID string) (*transaction.Transaction, error) {
	if !actingAs.Valid() {
		return nil, trade.ErrInvalidParty
	}
	leg := actingAs.Opposite()
	params, err := f.legNetwork(t, leg)
	if err != nil {
		return nil, err
	}
	if err := t.SecretHash().Check(secret); err != nil {
		return nil, err
	}
	fund, err := t.RequireFunded(leg)
	if err != nil {
		return nil, err
	}
	lock, err := fundLockScript(t, leg, fund)
	if err != nil {
		return nil, err
	}
	tx, err := f.spendTx(fund, lock, address, claimUnlockLen, 0, transaction.DefaultSequenceNumber)
	if err != nil {
		return nil, err
	}
	unlock, err := f.BuildCompletionScriptSignature(t, actingAs, tx, 0, keyID, secret)
	if err != nil {
		return nil, err
	}
	tx.Inputs[0].UnlockingScript = unlock
	if err := htlc.VerifyInput(tx, 0, tx.Inputs[0].SourceTxOutput(), params.SupportsCLTV); err != nil {
		return nil, fmt.Errorf("%w: %w", trade.ErrInvalidSignature, err)
	}
	return tx, nil
}

// CompleteRefundTransaction verifies both signatures against the contract
// script for actingAs's leg and attaches the refund unlocking script to
// input 0 of tx. tx is left unchanged on failure.
func (f *Factory) CompleteRefundTransaction(t *trade.Trade, actingAs trade.Party, tx *transaction.Transaction, mySig, theirSig []byte) error {
	params, err := f.legNetwork(t, actingAs)
	if err != nil {
		return err
	}
	if tx == nil || len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: refund has no inputs", ErrInvalidTransaction)
	}
	fund, err := t.RequireFunded(actingAs)
	if err != nil {
		return err
	}
	lock, err := fundLockScript(t, actingAs, fund)
	if err != nil {
		return err
	}
	unlock, err := f.BuildRefundScriptSignature(t, actingAs, mySig, theirSig)
	if err != nil {
		return err
	}

	prev := &transaction.TransactionOutput{Satoshis: fund.Amount, LockingScript: lock}
	check, err := transaction.NewTransactionFromBytes(tx.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	check.Inputs[0].SetSourceTxOutput(prev)
	check.Inputs[0].UnlockingScript = unlock
	if err := htlc.VerifyInput(check, 0, prev, params.SupportsCLTV); err != nil {
		return fmt.Errorf("%w: %w", trade.ErrInvalidSignature, err)
	}

	tx.Inputs[0].SetSourceTxOutput(prev)
	tx.Inputs[0].UnlockingScript = unlock
	return nil
}

// fundLockScript derives the contract script for leg and checks it against
// the script recorded with the fund output.
func fundLockScript(t *trade.Trade, leg trade.Party, fund trade.OutputRef) (*script.Script, error) {
	lock, err := htlc.BuildLockScript(t, leg)
	if err != nil {
		return nil, err
	}
	if len(fund.LockingScript) > 0 && !bytes.Equal(lock.Bytes(), fund.LockingScript) {
		return nil, fmt.Errorf("%w: %s leg output %s is not locked by the contract", trade.ErrFundOutputMismatch, leg, fund)
	}
	return lock, nil
}

// spendTx builds an unsigned one-in one-out spend of a contract output.
func (f *Factory) spendTx(fund trade.OutputRef, lock *script.Script, address string, unlockLen int, lockTime, sequence uint32) (*transaction.Transaction, error) {
	dest, err := payToAddress(address)
	if err != nil {
		return nil, err
	}
	fee := f.feeRate.Fee(spendSize(unlockLen))
	if fund.Amount <= fee {
		return nil, fmt.Errorf("%w: output %s holds %d satoshis, fee is %d",
			trade.ErrInsufficientFunds, fund, fund.Amount, fee)
	}

	txid := fund.TxID
	tx := transaction.NewTransaction()
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &txid,
		SourceTxOutIndex: fund.Vout,
		SequenceNumber:   sequence,
	})
	tx.Inputs[0].SetSourceTxOutput(&transaction.TransactionOutput{Satoshis: fund.Amount, LockingScript: lock})
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: fund.Amount - fee, LockingScript: dest})
	tx.LockTime = lockTime
	return tx, nil
}
