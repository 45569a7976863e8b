package htlc

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/acct-go/trade"
)

const fundAmount = 100_000

type fixture struct {
	lead, other *ec.PrivateKey
	secret      []byte
	trade       *trade.Trade
	now         time.Time
}

func newFixture(t *testing.T, kind trade.ScriptKind) *fixture {
	t.Helper()
	lead, err := ec.NewPrivateKey()
	require.NoError(t, err)
	other, err := ec.NewPrivateKey()
	require.NoError(t, err)
	secret, hash, err := trade.NewSecret()
	require.NoError(t, err)

	c := trade.DefaultContract()
	c.Script = kind
	tr, err := trade.New(trade.Params{
		LeadInput:     trade.Input{Network: "regtest", Amount: fundAmount},
		OtherInput:    trade.Input{Network: "bch-regtest", Amount: 250_000_000},
		Contract:      c,
		SecretHash:    hash,
		LeadPublicKey: lead.PubKey(),
	})
	require.NoError(t, err)
	require.NoError(t, tr.SetOtherPublicKey(other.PubKey()))
	now := time.Now()
	require.NoError(t, tr.SetLockTime(now.Add(24*time.Hour), now))
	return &fixture{lead: lead, other: other, secret: secret, trade: tr, now: now}
}

func newKey(t *testing.T) *ec.PrivateKey {
	t.Helper()
	k, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return k
}

// spendTx builds a one-in one-out transaction spending a contract output
// locked by lock.
func spendTx(t *testing.T, lock *script.Script, lockTime, sequence uint32) (*transaction.Transaction, *transaction.TransactionOutput) {
	t.Helper()
	prevID := chainhash.DoubleHashH([]byte("contract-fund"))
	prev := &transaction.TransactionOutput{Satoshis: fundAmount, LockingScript: lock}

	tx := transaction.NewTransaction()
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &prevID,
		SourceTxOutIndex: 0,
		SequenceNumber:   sequence,
	})
	tx.Inputs[0].SetSourceTxOutput(prev)

	addr, err := script.NewAddressFromPublicKey(newKey(t).PubKey(), false)
	require.NoError(t, err)
	dest, err := p2pkh.Lock(addr)
	require.NoError(t, err)
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: fundAmount - 500, LockingScript: dest})
	tx.LockTime = lockTime
	return tx, prev
}

func signInput(t *testing.T, tx *transaction.Transaction, key *ec.PrivateKey) []byte {
	t.Helper()
	h, err := tx.CalcInputSignatureHash(0, sighash.AllForkID)
	require.NoError(t, err)
	sig, err := key.Sign(h)
	require.NoError(t, err)
	return append(sig.Serialize(), byte(sighash.AllForkID))
}

func rawScript(t *testing.T, parts ...interface{}) *script.Script {
	t.Helper()
	s := &script.Script{}
	for _, p := range parts {
		switch v := p.(type) {
		case byte:
			require.NoError(t, s.AppendOpcodes(v))
		case []byte:
			require.NoError(t, s.AppendPushData(v))
		default:
			t.Fatalf("unsupported script part %T", p)
		}
	}
	return s
}
