package wallet

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bitfsorg/acct-go/trade"
)

// secretInfo is the HKDF info prefix for trade secrets.
const secretInfo = "acct-trade-secret"

// DeriveTradeSecret deterministically derives the contract secret for a
// trade from the wallet seed, so a lost secret can be recovered from the
// mnemonic. Different trade ids yield unrelated secrets.
func DeriveTradeSecret(seed []byte, tradeID string) ([]byte, trade.SecretHash, error) {
	if len(seed) == 0 {
		return nil, trade.SecretHash{}, ErrInvalidSeed
	}
	if tradeID == "" {
		return nil, trade.SecretHash{}, fmt.Errorf("%w: empty trade id", trade.ErrInvalidTrade)
	}

	r := hkdf.New(sha256.New, seed, nil, []byte(secretInfo+":"+tradeID))
	secret := make([]byte, trade.SecretSize)
	if _, err := io.ReadFull(r, secret); err != nil {
		return nil, trade.SecretHash{}, fmt.Errorf("%w: hkdf: %w", ErrDerivationFailed, err)
	}
	h, err := trade.HashSecret(secret)
	if err != nil {
		return nil, trade.SecretHash{}, err
	}
	return secret, h, nil
}
