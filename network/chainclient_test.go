package network

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/trade"
)

func newTestKey(t *testing.T) *ec.PrivateKey {
	t.Helper()
	k, err := ec.NewPrivateKey()
	require.NoError(t, err)
	return k
}

func newTestClient(t *testing.T, svc BlockchainService) *ChainClient {
	t.Helper()
	c, err := NewChainClient(ChainClientConfig{Service: svc, Params: BSVRegTest, FundingKey: newTestKey(t)})
	require.NoError(t, err)
	return c
}

func newTestTrade(t *testing.T) *trade.Trade {
	t.Helper()
	_, hash, err := trade.NewSecret()
	require.NoError(t, err)
	tr, err := trade.New(trade.Params{
		LeadInput:     trade.Input{Network: "regtest", Amount: 100_000},
		OtherInput:    trade.Input{Network: "bch-regtest", Amount: 250_000},
		Contract:      trade.DefaultContract(),
		SecretHash:    hash,
		LeadPublicKey: newTestKey(t).PubKey(),
	})
	require.NoError(t, err)
	require.NoError(t, tr.SetOtherPublicKey(newTestKey(t).PubKey()))
	now := time.Now()
	require.NoError(t, tr.SetLockTime(now.Add(24*time.Hour), now))
	return tr
}

// contractPayment returns an unfunded transaction paying amount to the lead contract.
func contractPayment(t *testing.T, tr *trade.Trade, amount uint64) *transaction.Transaction {
	t.Helper()
	lock, err := htlc.BuildLockScript(tr, trade.Lead)
	require.NoError(t, err)
	tx := transaction.NewTransaction()
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: amount, LockingScript: lock})
	return tx
}

func utxoID(seed string) string {
	h := chainhash.DoubleHashH([]byte(seed))
	return h.String()
}

func TestNewChainClient(t *testing.T) {
	svc := &MockBlockchainService{}
	key := newTestKey(t)
	tests := []struct {
		name string
		cfg  ChainClientConfig
	}{
		{name: "no service", cfg: ChainClientConfig{Params: BSVRegTest, FundingKey: key}},
		{name: "no key", cfg: ChainClientConfig{Service: svc, Params: BSVRegTest}},
		{name: "no params", cfg: ChainClientConfig{Service: svc, FundingKey: key}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChainClient(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}

	c, err := NewChainClient(ChainClientConfig{Service: svc, Params: BSVMainNet, FundingKey: key})
	require.NoError(t, err)
	assert.Equal(t, "mainnet", c.Params().Name)
	assert.Equal(t, byte('1'), c.Address()[0])
}

func TestCompleteAndFund(t *testing.T) {
	tr := newTestTrade(t)
	svc := &MockBlockchainService{}
	c := newTestClient(t, svc)
	lockHex := hex.EncodeToString(c.lock.Bytes())

	svc.ListUnspentFn = func(_ context.Context, address string) ([]*UTXO, error) {
		assert.Equal(t, c.Address(), address)
		return []*UTXO{
			{TxID: utxoID("small"), Vout: 0, Amount: 50_000, ScriptPubKey: lockHex, Confirmations: 3},
			{TxID: utxoID("large"), Vout: 2, Amount: 200_000, ScriptPubKey: lockHex, Confirmations: 1},
			{TxID: utxoID("foreign"), Vout: 0, Amount: 900_000, ScriptPubKey: "51", Confirmations: 10},
			{TxID: utxoID("pending"), Vout: 0, Amount: 800_000, ScriptPubKey: lockHex},
		}, nil
	}

	tx, err := c.CompleteAndFund(context.Background(), contractPayment(t, tr, 100_000))
	require.NoError(t, err)

	require.Len(t, tx.Inputs, 1, "largest confirmed coin should cover the payment")
	assert.Equal(t, utxoID("large"), tx.Inputs[0].SourceTXID.String())
	assert.Equal(t, uint32(2), tx.Inputs[0].SourceTxOutIndex)

	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, uint64(100_000), tx.Outputs[0].Satoshis)
	change := tx.Outputs[1]
	assert.Equal(t, c.lock.Bytes(), change.LockingScript.Bytes(), "change returns to the funding address")
	fee := 200_000 - 100_000 - change.Satoshis
	assert.Greater(t, fee, uint64(0))
	assert.GreaterOrEqual(t, fee, uint64(len(tx.Bytes())), "fee should cover at least 1 sat/byte")

	prev := tx.Inputs[0].SourceTxOutput()
	require.NotNil(t, prev)
	assert.NoError(t, htlc.VerifyInput(tx, 0, prev, false))
}

func TestCompleteAndFund_MultipleInputs(t *testing.T) {
	tr := newTestTrade(t)
	svc := &MockBlockchainService{}
	c := newTestClient(t, svc)
	lockHex := hex.EncodeToString(c.lock.Bytes())
	svc.ListUnspentFn = func(context.Context, string) ([]*UTXO, error) {
		return []*UTXO{
			{TxID: utxoID("a"), Amount: 60_000, ScriptPubKey: lockHex, Confirmations: 1},
			{TxID: utxoID("b"), Amount: 70_000, ScriptPubKey: lockHex, Confirmations: 1},
		}, nil
	}

	tx, err := c.CompleteAndFund(context.Background(), contractPayment(t, tr, 100_000))
	require.NoError(t, err)
	require.Len(t, tx.Inputs, 2)
	assert.Equal(t, utxoID("b"), tx.Inputs[0].SourceTXID.String())
	for i := range tx.Inputs {
		assert.NoError(t, htlc.VerifyInput(tx, i, tx.Inputs[i].SourceTxOutput(), false), "input %d", i)
	}
}

func TestCompleteAndFund_DustChangeDropped(t *testing.T) {
	tr := newTestTrade(t)
	svc := &MockBlockchainService{}
	c := newTestClient(t, svc)
	lockHex := hex.EncodeToString(c.lock.Bytes())

	payment := contractPayment(t, tr, 100_000)
	fee := c.fee(len(payment.Bytes()) + p2pkhOutputLen + p2pkhInputLen)
	svc.ListUnspentFn = func(context.Context, string) ([]*UTXO, error) {
		return []*UTXO{{TxID: utxoID("exact"), Amount: 100_000 + fee + 100, ScriptPubKey: lockHex, Confirmations: 1}}, nil
	}

	tx, err := c.CompleteAndFund(context.Background(), payment)
	require.NoError(t, err)
	assert.Len(t, tx.Outputs, 1, "change below dust should go to the fee")
}

func TestCompleteAndFund_InsufficientFunds(t *testing.T) {
	tr := newTestTrade(t)
	svc := &MockBlockchainService{}
	c := newTestClient(t, svc)
	lockHex := hex.EncodeToString(c.lock.Bytes())

	tests := []struct {
		name  string
		utxos []*UTXO
	}{
		{name: "empty wallet"},
		{name: "short by the fee", utxos: []*UTXO{{TxID: utxoID("x"), Amount: 100_000, ScriptPubKey: lockHex, Confirmations: 1}}},
		{name: "only unconfirmed", utxos: []*UTXO{{TxID: utxoID("y"), Amount: 1_000_000, ScriptPubKey: lockHex}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.ListUnspentFn = func(context.Context, string) ([]*UTXO, error) { return tt.utxos, nil }
			_, err := c.CompleteAndFund(context.Background(), contractPayment(t, tr, 100_000))
			assert.ErrorIs(t, err, trade.ErrInsufficientFunds)
		})
	}
}

func TestCompleteAndFund_ServiceError(t *testing.T) {
	tr := newTestTrade(t)
	svc := &MockBlockchainService{
		ListUnspentFn: func(context.Context, string) ([]*UTXO, error) { return nil, ErrConnectionFailed },
	}
	c := newTestClient(t, svc)
	_, err := c.CompleteAndFund(context.Background(), contractPayment(t, tr, 100_000))
	assert.ErrorIs(t, err, ErrConnectionFailed)

	_, err = c.CompleteAndFund(context.Background(), transaction.NewTransaction())
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestBroadcast(t *testing.T) {
	tr := newTestTrade(t)
	tx := contractPayment(t, tr, 1000)
	prev := chainhash.DoubleHashH([]byte("in"))
	tx.AddInput(&transaction.TransactionInput{SourceTXID: &prev, SequenceNumber: transaction.DefaultSequenceNumber})

	svc := &MockBlockchainService{
		BroadcastTxFn: func(_ context.Context, rawTxHex string) (string, error) {
			assert.Equal(t, hex.EncodeToString(tx.Bytes()), rawTxHex)
			return tx.TxID().String(), nil
		},
	}
	c := newTestClient(t, svc)
	txid, err := c.Broadcast(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, *tx.TxID(), txid)

	svc.BroadcastTxFn = func(context.Context, string) (string, error) { return "", ErrBroadcastRejected }
	_, err = c.Broadcast(context.Background(), tx)
	assert.ErrorIs(t, err, ErrBroadcastRejected)
}

func TestLookupConfirmedOutput(t *testing.T) {
	base := newTestTrade(t)
	lock, err := htlc.BuildLockScript(base, trade.Lead)
	require.NoError(t, err)
	payee := newTestClient(t, &MockBlockchainService{}).lock

	newTx := func(outs ...*transaction.TransactionOutput) *transaction.Transaction {
		prev := chainhash.DoubleHashH([]byte("wallet-coin"))
		tx := transaction.NewTransaction()
		tx.AddInput(&transaction.TransactionInput{SourceTXID: &prev, SequenceNumber: transaction.DefaultSequenceNumber})
		for _, out := range outs {
			tx.AddOutput(out)
		}
		return tx
	}
	fundTx := newTx(
		&transaction.TransactionOutput{Satoshis: 5000, LockingScript: payee},
		&transaction.TransactionOutput{Satoshis: 100_000, LockingScript: lock},
	)
	short := newTx(&transaction.TransactionOutput{Satoshis: 99_999, LockingScript: lock})
	unrelated := newTx(&transaction.TransactionOutput{Satoshis: 100_000, LockingScript: payee})
	confirmed := &TxStatus{Confirmed: true, Confirmations: 2}

	tests := []struct {
		name    string
		fund    *transaction.Transaction
		status  *TxStatus
		err     error
		raw     []byte
		wantNil bool
		wantErr error
	}{
		{name: "confirmed", fund: fundTx, status: confirmed, raw: fundTx.Bytes()},
		{name: "unknown", fund: fundTx, err: ErrTxNotFound, wantNil: true},
		{name: "mempool", fund: fundTx, status: &TxStatus{}, wantNil: true},
		{name: "node down", fund: fundTx, err: ErrConnectionFailed, wantErr: ErrConnectionFailed},
		{name: "node returns another tx", fund: fundTx, status: confirmed, raw: short.Bytes(), wantErr: ErrInvalidResponse},
		{name: "garbage", fund: fundTx, status: confirmed, raw: []byte{0x01}, wantErr: ErrInvalidResponse},
		{name: "underfunded", fund: short, status: confirmed, raw: short.Bytes(), wantErr: trade.ErrFundOutputMismatch},
		{name: "no contract output", fund: unrelated, status: confirmed, raw: unrelated.Bytes(), wantErr: trade.ErrFundOutputMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := base.Clone()
			require.NoError(t, tr.SetFundTxID(trade.Lead, *tt.fund.TxID()))
			svc := &MockBlockchainService{
				GetTxStatusFn: func(_ context.Context, txid string) (*TxStatus, error) {
					assert.Equal(t, tt.fund.TxID().String(), txid)
					return tt.status, tt.err
				},
				GetRawTxFn: func(context.Context, string) ([]byte, error) { return tt.raw, nil },
			}
			ref, err := newTestClient(t, svc).LookupConfirmedOutput(context.Background(), tr, trade.Lead)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, ref)
				return
			}
			require.NotNil(t, ref)
			assert.Equal(t, *fundTx.TxID(), ref.TxID)
			assert.Equal(t, uint32(1), ref.Vout)
			assert.Equal(t, uint64(100_000), ref.Amount)
			assert.Equal(t, lock.Bytes(), ref.LockingScript)
		})
	}

	t.Run("no fund txid", func(t *testing.T) {
		ref, err := newTestClient(t, &MockBlockchainService{}).LookupConfirmedOutput(context.Background(), base, trade.Lead)
		require.NoError(t, err)
		assert.Nil(t, ref)
	})
}
