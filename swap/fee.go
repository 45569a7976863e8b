package swap

// FeeRate is a transaction fee in satoshis per 1000 bytes.
type FeeRate uint64

// DefaultFeeRate is 1 sat/byte.
const DefaultFeeRate FeeRate = 1000

// Fee returns the fee for a transaction of size bytes. A non-zero rate
// never yields a zero fee.
func (r FeeRate) Fee(size int) uint64 {
	if r == 0 || size <= 0 {
		return 0
	}
	fee := uint64(r) * uint64(size) / 1000
	if fee == 0 {
		fee = 1
	}
	return fee
}

// Serialized sizes of the pieces of a contract spend.
const (
	sigLen        = 73 // DER signature with sighash byte, upper bound
	p2pkhLockLen  = 25
	txOverheadLen = 4 + 1 + 1 + 4 // version, input count, output count, lock time
	outpointLen   = 32 + 4
	sequenceLen   = 4
	amountLen     = 8

	cooperativeRefundUnlockLen = 1 + sigLen + 1 + 1 + sigLen
	timeLockedRefundUnlockLen  = 1 + sigLen + 1
	claimUnlockLen             = 1 + 32 + 1 + 1 + sigLen
)

// spendSize estimates a one-in one-out P2PKH-paying spend of a contract
// output whose unlocking script is unlockLen bytes.
func spendSize(unlockLen int) int {
	return txOverheadLen + outpointLen + varIntLen(unlockLen) + unlockLen + sequenceLen +
		amountLen + varIntLen(p2pkhLockLen) + p2pkhLockLen
}

func varIntLen(n int) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	default:
		return 5
	}
}
