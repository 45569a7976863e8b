package wallet

import (
	"strings"
	"sync"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/network"
	"github.com/bitfsorg/acct-go/trade"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testWallet(t *testing.T, params network.Params) (*Wallet, []byte) {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	w, err := NewWallet(seed, params)
	require.NoError(t, err)
	return w, seed
}

// --- Mnemonic tests ---

func TestGenerateMnemonic_12Words(t *testing.T) {
	mnemonic, err := GenerateMnemonic(Mnemonic12Words)
	require.NoError(t, err)

	assert.Len(t, strings.Fields(mnemonic), 12)
	assert.True(t, ValidateMnemonic(mnemonic), "generated mnemonic should be valid")
}

func TestGenerateMnemonic_24Words(t *testing.T) {
	mnemonic, err := GenerateMnemonic(Mnemonic24Words)
	require.NoError(t, err)

	assert.Len(t, strings.Fields(mnemonic), 24)
	assert.True(t, ValidateMnemonic(mnemonic), "generated mnemonic should be valid")
}

func TestGenerateMnemonic_InvalidEntropy(t *testing.T) {
	_, err := GenerateMnemonic(64)
	assert.ErrorIs(t, err, ErrInvalidEntropy)

	_, err = GenerateMnemonic(192)
	assert.ErrorIs(t, err, ErrInvalidEntropy)
}

func TestSeedFromMnemonic(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic, "")
	require.NoError(t, err)
	assert.Len(t, seed, 64)

	withPass, err := SeedFromMnemonic(testMnemonic, "TREZOR")
	require.NoError(t, err)
	assert.NotEqual(t, seed, withPass, "passphrase should change the seed")

	_, err = SeedFromMnemonic("not a valid mnemonic", "")
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

// --- HD derivation tests ---

func TestNewWallet_EmptySeed(t *testing.T) {
	_, err := NewWallet(nil, network.BSVMainNet)
	assert.ErrorIs(t, err, ErrInvalidSeed)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	w1, _ := testWallet(t, network.BSVMainNet)
	w2, _ := testWallet(t, network.BSVMainNet)

	k1, err := w1.DeriveTradeKey(7)
	require.NoError(t, err)
	k2, err := w2.DeriveTradeKey(7)
	require.NoError(t, err)

	assert.Equal(t, k1.PublicKey.Compressed(), k2.PublicKey.Compressed())
	assert.Equal(t, "m/44'/236'/1'/0/7", k1.Path)
}

func TestDeriveKey_AccountsDiffer(t *testing.T) {
	w, _ := testWallet(t, network.BSVMainNet)

	fund, err := w.DeriveFundingKey(0)
	require.NoError(t, err)
	tk, err := w.DeriveTradeKey(0)
	require.NoError(t, err)
	next, err := w.DeriveTradeKey(1)
	require.NoError(t, err)

	assert.Equal(t, "m/44'/236'/0'/0/0", fund.Path)
	assert.NotEqual(t, fund.PublicKey.Compressed(), tk.PublicKey.Compressed())
	assert.NotEqual(t, tk.PublicKey.Compressed(), next.PublicKey.Compressed())
}

func TestDeriveKey_IndexOutOfRange(t *testing.T) {
	w, _ := testWallet(t, network.BSVMainNet)

	_, err := w.DeriveKey(0, 0, MaxIndex+1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = w.DeriveKey(MaxIndex+1, 0, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAddress_Network(t *testing.T) {
	main, _ := testWallet(t, network.BSVMainNet)
	test, _ := testWallet(t, network.BSVTestNet)

	mk, err := main.DeriveFundingKey(0)
	require.NoError(t, err)
	tk, err := test.DeriveFundingKey(0)
	require.NoError(t, err)
	require.Equal(t, mk.PublicKey.Compressed(), tk.PublicKey.Compressed(), "network should not change the key")

	ma, err := main.Address(mk)
	require.NoError(t, err)
	ta, err := test.Address(tk)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ma, "1"), "mainnet address %s", ma)
	assert.NotEqual(t, ma, ta)
}

func TestParseKeyID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		account uint32
		chain   uint32
		index   uint32
		wantErr error
	}{
		{name: "trade key", id: "m/44'/236'/1'/0/42", account: 1, index: 42},
		{name: "change key", id: "m/44'/236'/0'/1/3", chain: 1, index: 3},
		{name: "wrong purpose", id: "m/49'/236'/0'/0/0", wantErr: ErrInvalidKeyID},
		{name: "wrong coin", id: "m/44'/0'/0'/0/0", wantErr: ErrInvalidKeyID},
		{name: "unhardened account", id: "m/44'/236'/0/0/0", wantErr: ErrInvalidKeyID},
		{name: "trailing data", id: "m/44'/236'/0'/0/0/1", wantErr: ErrInvalidKeyID},
		{name: "leading zero", id: "m/44'/236'/0'/0/01", wantErr: ErrInvalidKeyID},
		{name: "empty", id: "", wantErr: ErrInvalidKeyID},
		{name: "hardened range", id: "m/44'/236'/0'/0/2147483648", wantErr: ErrIndexOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, c, i, err := ParseKeyID(tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.account, a)
			assert.Equal(t, tt.chain, c)
			assert.Equal(t, tt.index, i)
			assert.Equal(t, tt.id, KeyID(a, c, i))
		})
	}
}

// --- Trade secret tests ---

func TestDeriveTradeSecret(t *testing.T) {
	_, seed := testWallet(t, network.BSVMainNet)

	s1, h1, err := DeriveTradeSecret(seed, "trade-a")
	require.NoError(t, err)
	assert.Len(t, s1, trade.SecretSize)
	assert.True(t, h1.Matches(s1))

	again, _, err := DeriveTradeSecret(seed, "trade-a")
	require.NoError(t, err)
	assert.Equal(t, s1, again, "derivation should be deterministic")

	s2, h2, err := DeriveTradeSecret(seed, "trade-b")
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestDeriveTradeSecret_Errors(t *testing.T) {
	_, _, err := DeriveTradeSecret(nil, "trade-a")
	assert.ErrorIs(t, err, ErrInvalidSeed)

	_, _, err = DeriveTradeSecret([]byte("seed"), "")
	assert.ErrorIs(t, err, trade.ErrInvalidTrade)
}

// --- Keyring tests ---

// p2pkhSpend returns a transaction spending a P2PKH output of kp.
func p2pkhSpend(t *testing.T, w *Wallet, kp *KeyPair) (*transaction.Transaction, *transaction.TransactionOutput) {
	t.Helper()
	addrStr, err := w.Address(kp)
	require.NoError(t, err)
	addr, err := script.NewAddressFromString(addrStr)
	require.NoError(t, err)
	lock, err := p2pkh.Lock(addr)
	require.NoError(t, err)

	prevID := chainhash.DoubleHashH([]byte("keyring-utxo"))
	prev := &transaction.TransactionOutput{Satoshis: 10_000, LockingScript: lock}
	tx := transaction.NewTransaction()
	tx.AddInput(&transaction.TransactionInput{
		SourceTXID:       &prevID,
		SourceTxOutIndex: 1,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	})
	tx.Inputs[0].SetSourceTxOutput(prev)
	tx.AddOutput(&transaction.TransactionOutput{Satoshis: 9_000, LockingScript: lock})
	return tx, prev
}

func TestKeyring_SignVerifies(t *testing.T) {
	w, _ := testWallet(t, network.BSVRegTest)
	kp, err := w.DeriveFundingKey(3)
	require.NoError(t, err)
	tx, prev := p2pkhSpend(t, w, kp)

	k := NewKeyring()
	k.Unlock(w)
	sig, err := k.Sign(prev.LockingScript, tx, 0, kp.Path)
	require.NoError(t, err)

	unlock := &script.Script{}
	require.NoError(t, unlock.AppendPushData(sig))
	require.NoError(t, unlock.AppendPushData(kp.PublicKey.Compressed()))
	tx.Inputs[0].UnlockingScript = unlock

	assert.NoError(t, htlc.VerifyInput(tx, 0, prev, false))
}

func TestKeyring_Locked(t *testing.T) {
	w, _ := testWallet(t, network.BSVRegTest)
	kp, err := w.DeriveFundingKey(0)
	require.NoError(t, err)
	tx, prev := p2pkhSpend(t, w, kp)

	k := NewKeyring()
	assert.True(t, k.Locked())
	_, err = k.Sign(prev.LockingScript, tx, 0, kp.Path)
	assert.ErrorIs(t, err, trade.ErrKeyUnavailable)

	k.Unlock(w)
	assert.False(t, k.Locked())
	_, err = k.PublicKey(kp.Path)
	require.NoError(t, err)

	k.Lock()
	_, err = k.PublicKey(kp.Path)
	assert.ErrorIs(t, err, trade.ErrKeyUnavailable)
}

func TestKeyring_SignErrors(t *testing.T) {
	w, _ := testWallet(t, network.BSVRegTest)
	kp, err := w.DeriveFundingKey(0)
	require.NoError(t, err)
	other, err := w.DeriveFundingKey(1)
	require.NoError(t, err)
	tx, prev := p2pkhSpend(t, w, kp)
	otherTx, _ := p2pkhSpend(t, w, other)

	bare := transaction.NewTransaction()
	prevID := chainhash.DoubleHashH([]byte("bare"))
	bare.AddInput(&transaction.TransactionInput{SourceTXID: &prevID, SequenceNumber: transaction.DefaultSequenceNumber})

	k := NewKeyring()
	k.Unlock(w)

	tests := []struct {
		name    string
		tx      *transaction.Transaction
		index   uint32
		keyID   string
		wantErr error
	}{
		{name: "bad key id", tx: tx, keyID: "m/0/1", wantErr: trade.ErrKeyUnavailable},
		{name: "input out of range", tx: tx, index: 2, keyID: kp.Path, wantErr: ErrInvalidSignRequest},
		{name: "no source output", tx: bare, keyID: kp.Path, wantErr: ErrInvalidSignRequest},
		{name: "different lock script", tx: otherTx, keyID: kp.Path, wantErr: ErrInvalidSignRequest},
		{name: "nil transaction", keyID: kp.Path, wantErr: ErrInvalidSignRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Sign(prev.LockingScript, tt.tx, tt.index, tt.keyID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKeyring_Concurrent(t *testing.T) {
	w, _ := testWallet(t, network.BSVRegTest)
	k := NewKeyring()
	k.Unlock(w)

	var wg sync.WaitGroup
	for i := uint32(0); i < 8; i++ {
		wg.Add(1)
		go func(i uint32) {
			defer wg.Done()
			pub, err := k.PublicKey(KeyID(TradeAccount, ExternalChain, i%2))
			assert.NoError(t, err)
			assert.NotNil(t, pub)
		}(i)
	}
	wg.Wait()
}
