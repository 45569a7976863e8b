package trade

import (
	"errors"
	"fmt"
)

var (
	// ErrNegotiationIncomplete indicates the trade is missing data that only
	// further negotiation can supply.
	ErrNegotiationIncomplete = errors.New("trade: negotiation incomplete")

	// ErrMissingCounterpartyKey indicates the other party's public key has not been set.
	ErrMissingCounterpartyKey = fmt.Errorf("%w: missing counterparty public key", ErrNegotiationIncomplete)

	// ErrMissingLockTime indicates no lock time has been agreed for the trade.
	ErrMissingLockTime = fmt.Errorf("%w: missing lock time", ErrNegotiationIncomplete)

	// ErrNoFundTransaction indicates the funding output for a leg has not been observed.
	ErrNoFundTransaction = errors.New("trade: no confirmed fund transaction")

	// ErrMissingCounterpartySignature indicates a cooperative refund was attempted with one signature.
	ErrMissingCounterpartySignature = errors.New("trade: missing counterparty signature")

	// ErrInsufficientFunds indicates the wallet cannot cover the amount plus fees.
	ErrInsufficientFunds = errors.New("trade: insufficient funds")

	// ErrKeyUnavailable indicates the signing key is locked or unknown.
	ErrKeyUnavailable = errors.New("trade: signing key unavailable")

	// ErrNotSupported indicates the operation is not available for the trade's script or network.
	ErrNotSupported = errors.New("trade: not supported")

	// ErrInvalidSignature indicates a signature does not satisfy the locking script.
	ErrInvalidSignature = errors.New("trade: invalid signature")

	// ErrInvalidContract indicates the lock-time window is empty or negative.
	ErrInvalidContract = errors.New("trade: invalid contract")

	// ErrLockTimeOutOfRange indicates a proposed lock time falls outside the contract window.
	ErrLockTimeOutOfRange = errors.New("trade: lock time outside contract window")

	// ErrAlreadySet indicates a write-once field was written twice.
	ErrAlreadySet = errors.New("trade: field already set")

	// ErrInvalidSecret indicates a secret of the wrong size.
	ErrInvalidSecret = errors.New("trade: invalid secret")

	// ErrSecretMismatch indicates a secret that does not hash to the trade's secret hash.
	ErrSecretMismatch = errors.New("trade: secret does not match secret hash")

	// ErrTradeSettled indicates the leg has already been refunded or completed.
	ErrTradeSettled = errors.New("trade: leg already settled")

	// ErrInvalidParty indicates a Party value other than Lead or Other.
	ErrInvalidParty = errors.New("trade: invalid party")

	// ErrInvalidTrade indicates malformed trade parameters or snapshot data.
	ErrInvalidTrade = errors.New("trade: invalid trade")

	// ErrFundOutputMismatch indicates an observed output that does not belong to the recorded fund transaction.
	ErrFundOutputMismatch = errors.New("trade: fund output does not match fund transaction")
)
