package wallet

import (
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/acct-go/network"
)

const (
	// BIP44 path constants.
	PurposeBIP44 = 44
	CoinType     = 236
	FundAccount  = 0
	TradeAccount = 1

	// Chain indices.
	ExternalChain = 0 // Receive addresses
	InternalChain = 1 // Change addresses

	// MaxIndex is the largest non-hardened BIP32 index.
	MaxIndex = 1<<31 - 1

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet is an HD wallet for one network.
type Wallet struct {
	masterKey *bip32.ExtendedKey
	network   network.Params
}

// KeyPair holds a derived public/private key pair.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path"` // Derivation path, also the key id
}

// NewWallet creates a Wallet from a BIP39 seed.
func NewWallet(seed []byte, params network.Params) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}

	net := &chaincfg.TestNet
	if params.Mainnet {
		net = &chaincfg.MainNet
	}

	masterKey, err := bip32.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}

	return &Wallet{
		masterKey: masterKey,
		network:   params,
	}, nil
}

// Network returns the wallet's network parameters.
func (w *Wallet) Network() network.Params {
	return w.network
}

// DeriveKey derives m/44'/236'/account'/chain/index.
func (w *Wallet) DeriveKey(account, chain, index uint32) (*KeyPair, error) {
	if account > MaxIndex || chain > MaxIndex || index > MaxIndex {
		return nil, ErrIndexOutOfRange
	}

	// m/44'
	purpose, err := w.masterKey.Child(PurposeBIP44 + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: purpose derivation: %w", ErrDerivationFailed, err)
	}

	// m/44'/236'
	coinType, err := purpose.Child(CoinType + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: coin type derivation: %w", ErrDerivationFailed, err)
	}

	// m/44'/236'/account'
	accountKey, err := coinType.Child(account + Hardened)
	if err != nil {
		return nil, fmt.Errorf("%w: account derivation: %w", ErrDerivationFailed, err)
	}

	chainKey, err := accountKey.Child(chain)
	if err != nil {
		return nil, fmt.Errorf("%w: chain derivation: %w", ErrDerivationFailed, err)
	}

	childKey, err := chainKey.Child(index)
	if err != nil {
		return nil, fmt.Errorf("%w: index derivation: %w", ErrDerivationFailed, err)
	}

	return extKeyToKeyPair(childKey, KeyID(account, chain, index))
}

// DeriveFundingKey derives the key whose P2PKH outputs fund contracts.
//
//	Path: m/44'/236'/0'/0/index
func (w *Wallet) DeriveFundingKey(index uint32) (*KeyPair, error) {
	return w.DeriveKey(FundAccount, ExternalChain, index)
}

// DeriveTradeKey derives the key committed to a contract script.
//
//	Path: m/44'/236'/1'/0/index
func (w *Wallet) DeriveTradeKey(index uint32) (*KeyPair, error) {
	return w.DeriveKey(TradeAccount, ExternalChain, index)
}

// Address returns the P2PKH address of kp on the wallet's network.
func (w *Wallet) Address(kp *KeyPair) (string, error) {
	addr, err := script.NewAddressFromPublicKey(kp.PublicKey, w.network.Mainnet)
	if err != nil {
		return "", fmt.Errorf("wallet: address from pubkey: %w", err)
	}
	return addr.AddressString, nil
}

// KeyID formats the derivation path used as a signing handle.
func KeyID(account, chain, index uint32) string {
	return fmt.Sprintf("m/44'/236'/%d'/%d/%d", account, chain, index)
}

// ParseKeyID parses a signing handle produced by KeyID.
func ParseKeyID(id string) (account, chain, index uint32, err error) {
	var purpose, coin uint32
	n, scanErr := fmt.Sscanf(id, "m/%d'/%d'/%d'/%d/%d", &purpose, &coin, &account, &chain, &index)
	if scanErr != nil || n != 5 || purpose != PurposeBIP44 || coin != CoinType || id != KeyID(account, chain, index) {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidKeyID, id)
	}
	if account > MaxIndex || chain > MaxIndex || index > MaxIndex {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrIndexOutOfRange, id)
	}
	return account, chain, index, nil
}

// extKeyToKeyPair converts a BIP32 extended key to a KeyPair.
func extKeyToKeyPair(extKey *bip32.ExtendedKey, path string) (*KeyPair, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to extract EC private key: %w", ErrDerivationFailed, err)
	}

	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: failed to derive public key", ErrDerivationFailed)
	}

	return &KeyPair{
		PrivateKey: privKey,
		PublicKey:  pubKey,
		Path:       path,
	}, nil
}
