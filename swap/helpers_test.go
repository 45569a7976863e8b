package swap

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/acct-go/network"
	"github.com/bitfsorg/acct-go/trade"
)

// keySigner signs with in-memory keys; unknown ids are unavailable.
type keySigner map[string]*ec.PrivateKey

func (k keySigner) Sign(_ *script.Script, tx *transaction.Transaction, inputIndex uint32, keyID string) ([]byte, error) {
	priv, ok := k[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", trade.ErrKeyUnavailable, keyID)
	}
	h, err := tx.CalcInputSignatureHash(inputIndex, sighash.AllForkID)
	if err != nil {
		return nil, err
	}
	sig, err := priv.Sign(h)
	if err != nil {
		return nil, err
	}
	return append(sig.Serialize(), byte(sighash.AllForkID)), nil
}

// fakeChain funds each transaction from one imaginary UTXO, debiting balance.
type fakeChain struct {
	balance uint64
	fee     uint64
	calls   int
	change  *script.Script
}

func (c *fakeChain) CompleteAndFund(_ context.Context, tx *transaction.Transaction) (*transaction.Transaction, error) {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Satoshis
	}
	if total+c.fee > c.balance {
		return nil, fmt.Errorf("%w: have %d, need %d", trade.ErrInsufficientFunds, c.balance, total+c.fee)
	}
	c.calls++
	prev := chainhash.DoubleHashH([]byte(fmt.Sprintf("utxo-%d", c.calls)))
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &prev,
		SourceTxOutIndex: 0,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	})
	if change := c.balance - total - c.fee; change > 0 && c.change != nil {
		tx.AddOutput(&transaction.TransactionOutput{Satoshis: change, LockingScript: c.change})
	}
	c.balance -= total + c.fee
	return tx, nil
}

func (c *fakeChain) LookupConfirmedOutput(context.Context, *trade.Trade, trade.Party) (*trade.OutputRef, error) {
	return nil, nil
}

type harness struct {
	lead, other  *ec.PrivateKey
	secret       []byte
	trade        *trade.Trade
	factory      *Factory
	chains       map[string]*fakeChain
	leadAddress  string
	otherAddress string
}

func newHarness(t *testing.T, kind trade.ScriptKind, leadNet, otherNet string) *harness {
	t.Helper()
	h := &harness{chains: map[string]*fakeChain{}}
	var err error
	h.lead, err = ec.NewPrivateKey()
	require.NoError(t, err)
	h.other, err = ec.NewPrivateKey()
	require.NoError(t, err)
	var hash trade.SecretHash
	h.secret, hash, err = trade.NewSecret()
	require.NoError(t, err)

	c := trade.DefaultContract()
	c.Script = kind
	h.trade, err = trade.New(trade.Params{
		LeadInput:     trade.Input{Network: leadNet, Amount: 100_000},
		OtherInput:    trade.Input{Network: otherNet, Amount: 250_000_000},
		Contract:      c,
		SecretHash:    hash,
		LeadPublicKey: h.lead.PubKey(),
	})
	require.NoError(t, err)
	require.NoError(t, h.trade.SetOtherPublicKey(h.other.PubKey()))
	now := time.Now()
	require.NoError(t, h.trade.SetLockTime(now.Add(24*time.Hour), now))

	h.leadAddress = address(t, h.lead.PubKey())
	h.otherAddress = address(t, h.other.PubKey())

	reg := network.DefaultRegistry()
	chains := map[string]ChainClient{}
	for _, name := range []string{leadNet, otherNet} {
		if _, err := reg.Lookup(name); err != nil {
			continue
		}
		fc := &fakeChain{balance: 1_000_000_000, fee: 500}
		h.chains[name] = fc
		chains[name] = fc
	}
	h.factory, err = NewFactory(Config{
		Networks: reg,
		Chains:   chains,
		Signer:   keySigner{"lead": h.lead, "other": h.other},
	})
	require.NoError(t, err)
	return h
}

// fund builds, audits and records the fund transaction of leg.
func (h *harness) fund(t *testing.T, leg trade.Party) *transaction.Transaction {
	t.Helper()
	tx, err := h.factory.BuildFundTransaction(context.Background(), h.trade, leg)
	require.NoError(t, err)
	vout, err := h.factory.AuditFundTransaction(h.trade, leg, tx)
	require.NoError(t, err)
	txid := *tx.TxID()
	require.NoError(t, h.trade.SetFundTxID(leg, txid))
	out := tx.Outputs[vout]
	require.NoError(t, h.trade.SetFundOutput(leg, trade.OutputRef{
		TxID:          txid,
		Vout:          vout,
		Amount:        out.Satoshis,
		LockingScript: out.LockingScript.Bytes(),
	}))
	return tx
}

func address(t *testing.T, pub *ec.PublicKey) string {
	t.Helper()
	addr, err := script.NewAddressFromPublicKey(pub, false)
	require.NoError(t, err)
	return addr.AddressString
}

func payTo(t *testing.T, addr string) *script.Script {
	t.Helper()
	a, err := script.NewAddressFromString(addr)
	require.NoError(t, err)
	s, err := p2pkh.Lock(a)
	require.NoError(t, err)
	return s
}
