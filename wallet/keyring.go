package wallet

import (
	"bytes"
	"fmt"
	"sync"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	sighash "github.com/bsv-blockchain/go-sdk/transaction/sighash"

	"github.com/bitfsorg/acct-go/trade"
)

// Keyring signs with keys derived from an unlocked Wallet. Key ids are
// derivation paths as produced by KeyID. A Keyring is safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	wallet *Wallet
	cache  map[string]*KeyPair
}

// NewKeyring returns a locked Keyring.
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Unlock makes w's keys available for signing.
func (k *Keyring) Unlock(w *Wallet) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wallet = w
	k.cache = make(map[string]*KeyPair)
}

// Lock forgets the wallet and every derived key.
func (k *Keyring) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.wallet = nil
	k.cache = nil
}

// Locked reports whether no wallet is unlocked.
func (k *Keyring) Locked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.wallet == nil
}

// PublicKey returns the public key for keyID.
func (k *Keyring) PublicKey(keyID string) (*ec.PublicKey, error) {
	kp, err := k.key(keyID)
	if err != nil {
		return nil, err
	}
	return kp.PublicKey, nil
}

// Sign returns a DER signature plus the SIGHASH_ALL|FORKID byte over input
// inputIndex of tx. The input's source output must be set and locked by lockScript.
func (k *Keyring) Sign(lockScript *script.Script, tx *transaction.Transaction, inputIndex uint32, keyID string) ([]byte, error) {
	if tx == nil || lockScript == nil {
		return nil, fmt.Errorf("%w: nil transaction or lock script", ErrInvalidSignRequest)
	}
	if int(inputIndex) >= len(tx.Inputs) {
		return nil, fmt.Errorf("%w: input %d of %d", ErrInvalidSignRequest, inputIndex, len(tx.Inputs))
	}
	src := tx.Inputs[inputIndex].SourceTxOutput()
	if src == nil || src.LockingScript == nil {
		return nil, fmt.Errorf("%w: input %d has no source output", ErrInvalidSignRequest, inputIndex)
	}
	if !bytes.Equal(src.LockingScript.Bytes(), lockScript.Bytes()) {
		return nil, fmt.Errorf("%w: input %d is not locked by the given script", ErrInvalidSignRequest, inputIndex)
	}

	kp, err := k.key(keyID)
	if err != nil {
		return nil, err
	}

	h, err := tx.CalcInputSignatureHash(inputIndex, sighash.AllForkID)
	if err != nil {
		return nil, fmt.Errorf("wallet: signature hash: %w", err)
	}
	sig, err := kp.PrivateKey.Sign(h)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	return append(sig.Serialize(), byte(sighash.AllForkID)), nil
}

// key derives keyID, caching the result until Lock.
func (k *Keyring) key(keyID string) (*KeyPair, error) {
	k.mu.RLock()
	w := k.wallet
	kp, ok := k.cache[keyID]
	k.mu.RUnlock()
	if w == nil {
		return nil, fmt.Errorf("%w: keyring is locked", trade.ErrKeyUnavailable)
	}
	if ok {
		return kp, nil
	}

	account, chain, index, err := ParseKeyID(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", trade.ErrKeyUnavailable, err)
	}
	kp, err = w.DeriveKey(account, chain, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", trade.ErrKeyUnavailable, err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.wallet != w {
		return nil, fmt.Errorf("%w: keyring is locked", trade.ErrKeyUnavailable)
	}
	k.cache[keyID] = kp
	return kp, nil
}
