package network

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/trade"
)

const (
	// DustLimit is the smallest change output that is worth creating.
	DustLimit = 546

	// DefaultFeePerKB is 1 sat/byte.
	DefaultFeePerKB = 1000

	// DefaultMinConfirmations is the depth at which fund outputs are trusted.
	DefaultMinConfirmations = 1

	p2pkhInputLen  = 149 // outpoint, push of sig and pubkey, sequence
	p2pkhOutputLen = 34
)

// ChainClientConfig wires a ChainClient to one network.
type ChainClientConfig struct {
	Service    BlockchainService
	Params     Params
	FundingKey *ec.PrivateKey
	// FeePerKB is the fee rate in satoshis per 1000 bytes.
	FeePerKB uint64
	// MinConfirmations applies to both wallet coins and contract outputs.
	MinConfirmations int64
	Log              *logrus.Entry
}

// ChainClient funds contract outputs from a single-key P2PKH wallet and
// finds confirmed contract outputs on one network.
type ChainClient struct {
	svc      BlockchainService
	params   Params
	key      *ec.PrivateKey
	address  string
	lock     *script.Script
	feePerKB uint64
	minConf  int64
	log      *logrus.Entry
}

// NewChainClient validates cfg and derives the funding address.
func NewChainClient(cfg ChainClientConfig) (*ChainClient, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("%w: blockchain service is required", ErrInvalidParams)
	}
	if cfg.FundingKey == nil {
		return nil, fmt.Errorf("%w: funding key is required", ErrInvalidParams)
	}
	if cfg.Params.Name == "" {
		return nil, fmt.Errorf("%w: network params are required", ErrInvalidParams)
	}
	addr, err := script.NewAddressFromPublicKey(cfg.FundingKey.PubKey(), cfg.Params.Mainnet)
	if err != nil {
		return nil, fmt.Errorf("%w: funding address: %w", ErrInvalidParams, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: funding script: %w", ErrInvalidParams, err)
	}

	c := &ChainClient{
		svc:      cfg.Service,
		params:   cfg.Params,
		key:      cfg.FundingKey,
		address:  addr.AddressString,
		lock:     lock,
		feePerKB: cfg.FeePerKB,
		minConf:  cfg.MinConfirmations,
		log:      cfg.Log,
	}
	if c.feePerKB == 0 {
		c.feePerKB = DefaultFeePerKB
	}
	if c.minConf <= 0 {
		c.minConf = DefaultMinConfirmations
	}
	if c.log == nil {
		c.log = logrus.NewEntry(logrus.StandardLogger())
	}
	c.log = c.log.WithField("network", cfg.Params.Name)
	return c, nil
}

// Address returns the funding address coins are spent from and change is paid to.
func (c *ChainClient) Address() string { return c.address }

// Params returns the network the client operates on.
func (c *ChainClient) Params() Params { return c.params }

func (c *ChainClient) fee(size int) uint64 {
	fee := c.feePerKB * uint64(size) / 1000
	if fee == 0 {
		fee = 1
	}
	return fee
}

// CompleteAndFund selects wallet coins largest first until they cover tx's
// outputs plus fee, adds a change output when it is above DustLimit, and
// signs the added inputs. tx is modified in place and returned.
func (c *ChainClient) CompleteAndFund(ctx context.Context, tx *transaction.Transaction) (*transaction.Transaction, error) {
	if tx == nil || len(tx.Outputs) == 0 {
		return nil, fmt.Errorf("%w: transaction has no outputs", ErrInvalidParams)
	}
	var target uint64
	for _, out := range tx.Outputs {
		target += out.Satoshis
	}

	utxos, err := c.svc.ListUnspent(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("list unspent: %w", err)
	}
	lockHex := hex.EncodeToString(c.lock.Bytes())
	spendable := utxos[:0:0]
	for _, u := range utxos {
		if u.Confirmations >= c.minConf && u.ScriptPubKey == lockHex {
			spendable = append(spendable, u)
		}
	}
	sort.SliceStable(spendable, func(i, j int) bool { return spendable[i].Amount > spendable[j].Amount })

	baseSize := len(tx.Bytes()) + p2pkhOutputLen
	var (
		selected []*UTXO
		total    uint64
		fee      uint64
	)
	for _, u := range spendable {
		selected = append(selected, u)
		total += u.Amount
		fee = c.fee(baseSize + len(selected)*p2pkhInputLen)
		if total >= target+fee {
			break
		}
	}
	if total < target+fee || len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s has %d spendable satoshis, need %d plus fee",
			trade.ErrInsufficientFunds, c.address, total, target)
	}

	for _, u := range selected {
		txid, err := trade.ParseTxID(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("%w: utxo txid %q: %w", ErrInvalidResponse, u.TxID, err)
		}
		unlocker, err := p2pkh.Unlock(c.key, nil)
		if err != nil {
			return nil, fmt.Errorf("p2pkh unlocker: %w", err)
		}
		tx.AddInput(&transaction.TransactionInput{
			SourceTXID:              &txid,
			SourceTxOutIndex:        u.Vout,
			SequenceNumber:          transaction.DefaultSequenceNumber,
			UnlockingScriptTemplate: unlocker,
		})
		tx.Inputs[len(tx.Inputs)-1].SetSourceTxOutput(&transaction.TransactionOutput{
			Satoshis:      u.Amount,
			LockingScript: c.lock,
		})
	}
	if change := total - target - fee; change > DustLimit {
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: c.lock})
	}

	if err := tx.Sign(); err != nil {
		return nil, fmt.Errorf("sign funding inputs: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"inputs": len(selected),
		"amount": SatToCoin(target, c.params.DecimalPlaces),
		"fee":    fee,
	}).Debug("funded transaction")
	return tx, nil
}

// Broadcast submits tx and returns its txid.
func (c *ChainClient) Broadcast(ctx context.Context, tx *transaction.Transaction) (chainhash.Hash, error) {
	txid, err := c.svc.BroadcastTx(ctx, hex.EncodeToString(tx.Bytes()))
	if err != nil {
		return chainhash.Hash{}, err
	}
	want := *tx.TxID()
	if got, err := trade.ParseTxID(txid); err != nil || !got.IsEqual(&want) {
		c.log.WithFields(logrus.Fields{"txid": want.String(), "node_txid": txid}).Warn("node reported unexpected txid")
	}
	c.log.WithField("txid", want.String()).Info("broadcast transaction")
	return want, nil
}

// LookupConfirmedOutput returns leg's contract output once its recorded
// fund transaction has MinConfirmations. It returns nil, nil while the fund
// transaction is unknown, unconfirmed, or not yet recorded on the trade.
func (c *ChainClient) LookupConfirmedOutput(ctx context.Context, t *trade.Trade, leg trade.Party) (*trade.OutputRef, error) {
	txid, ok := t.FundTxID(leg)
	if !ok {
		return nil, nil
	}
	lock, err := htlc.BuildLockScript(t, leg)
	if err != nil {
		return nil, err
	}

	status, err := c.svc.GetTxStatus(ctx, txid.String())
	if errors.Is(err, ErrTxNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tx status %s: %w", txid, err)
	}
	if !status.Confirmed || status.Confirmations < c.minConf {
		return nil, nil
	}

	raw, err := c.svc.GetRawTx(ctx, txid.String())
	if err != nil {
		return nil, fmt.Errorf("raw tx %s: %w", txid, err)
	}
	tx, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: parse tx %s: %w", ErrInvalidResponse, txid, err)
	}
	if got := tx.TxID(); !got.IsEqual(&txid) {
		return nil, fmt.Errorf("%w: node returned tx %s for %s", ErrInvalidResponse, got, txid)
	}

	amount := t.Input(leg).Amount
	for i, out := range tx.Outputs {
		if out.LockingScript == nil || !bytes.Equal(out.LockingScript.Bytes(), lock.Bytes()) {
			continue
		}
		if out.Satoshis < amount {
			return nil, fmt.Errorf("%w: contract output %s:%d holds %d, want %d",
				trade.ErrFundOutputMismatch, txid, i, out.Satoshis, amount)
		}
		return &trade.OutputRef{
			TxID:          txid,
			Vout:          uint32(i),
			Amount:        out.Satoshis,
			LockingScript: lock.Bytes(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s pays no %s contract output", trade.ErrFundOutputMismatch, txid, leg)
}
