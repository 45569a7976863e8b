package wallet

import "errors"

var (
	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("wallet: invalid BIP39 mnemonic")

	// ErrInvalidEntropy indicates entropy bits is not 128 or 256.
	ErrInvalidEntropy = errors.New("wallet: entropy bits must be 128 or 256")

	// ErrIndexOutOfRange indicates a key index exceeds the BIP32 non-hardened max.
	ErrIndexOutOfRange = errors.New("wallet: key index exceeds maximum (2^31-1)")

	// ErrInvalidSeed indicates the seed is empty or invalid.
	ErrInvalidSeed = errors.New("wallet: invalid seed")

	// ErrDerivationFailed indicates BIP32 key derivation failed.
	ErrDerivationFailed = errors.New("wallet: key derivation failed")

	// ErrInvalidKeyID indicates a key id that is not a wallet derivation path.
	ErrInvalidKeyID = errors.New("wallet: invalid key id")

	// ErrInvalidSignRequest indicates an input that cannot be signed as requested.
	ErrInvalidSignRequest = errors.New("wallet: invalid sign request")
)
