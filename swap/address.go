package swap

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// payToAddress returns the P2PKH locking script for a base58 address.
func payToAddress(address string) (*script.Script, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	addr, err := script.NewAddressFromString(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return lock, nil
}

// findContractOutput returns the index of the output of tx locked by lock
// carrying at least amount satoshis.
func findContractOutput(tx *transaction.Transaction, lock *script.Script, amount uint64) (uint32, error) {
	if tx == nil {
		return 0, fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	for i, out := range tx.Outputs {
		if out.LockingScript == nil || !bytes.Equal(out.LockingScript.Bytes(), lock.Bytes()) {
			continue
		}
		if out.Satoshis < amount {
			return 0, fmt.Errorf("%w: contract output %d holds %d satoshis, want %d",
				ErrAuditFailed, i, out.Satoshis, amount)
		}
		return uint32(i), nil
	}
	return 0, fmt.Errorf("%w: no output pays the contract script", ErrAuditFailed)
}
