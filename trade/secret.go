package trade

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

// SecretSize is the required length of a swap secret in bytes.
const SecretSize = 32

// SecretHash is HASH256 (double SHA-256) of the swap secret, in the byte
// order OP_HASH256 leaves on the stack.
type SecretHash [32]byte

// NewSecret returns a fresh random secret and its hash.
func NewSecret() ([]byte, SecretHash, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, SecretHash{}, fmt.Errorf("trade: generate secret: %w", err)
	}
	h, err := HashSecret(secret)
	if err != nil {
		return nil, SecretHash{}, err
	}
	return secret, h, nil
}

// HashSecret computes the SecretHash of secret, which must be SecretSize bytes.
func HashSecret(secret []byte) (SecretHash, error) {
	if len(secret) != SecretSize {
		return SecretHash{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSecret, SecretSize, len(secret))
	}
	var h SecretHash
	copy(h[:], chainhash.DoubleHashB(secret))
	return h, nil
}

// Matches reports whether secret hashes to h.
func (h SecretHash) Matches(secret []byte) bool {
	got, err := HashSecret(secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got[:], h[:]) == 1
}

// Check returns ErrSecretMismatch unless secret hashes to h.
func (h SecretHash) Check(secret []byte) error {
	if len(secret) != SecretSize {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSecret, SecretSize, len(secret))
	}
	if !h.Matches(secret) {
		return ErrSecretMismatch
	}
	return nil
}

// IsZero reports whether h is unset.
func (h SecretHash) IsZero() bool {
	return h == SecretHash{}
}

func (h SecretHash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseSecretHash decodes a hex SecretHash.
func ParseSecretHash(s string) (SecretHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(SecretHash{}) {
		return SecretHash{}, fmt.Errorf("%w: secret hash must be 32 hex-encoded bytes", ErrInvalidTrade)
	}
	var h SecretHash
	copy(h[:], b)
	return h, nil
}
