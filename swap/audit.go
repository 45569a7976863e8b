package swap

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/trade"
)

// AuditFundTransaction checks a counterparty's fund transaction for leg
// before relying on it: it must pay at least the committed amount into the
// contract script and every input must be final. It returns the index of
// the contract output.
func (f *Factory) AuditFundTransaction(t *trade.Trade, leg trade.Party, tx *transaction.Transaction) (uint32, error) {
	if _, err := f.legNetwork(t, leg); err != nil {
		return 0, err
	}
	lock, err := htlc.BuildLockScript(t, leg)
	if err != nil {
		return 0, err
	}
	vout, err := findContractOutput(tx, lock, t.Input(leg).Amount)
	if err != nil {
		return 0, err
	}
	for i, in := range tx.Inputs {
		if in.SequenceNumber != transaction.DefaultSequenceNumber {
			return 0, fmt.Errorf("%w: input %d is not final", ErrAuditFailed, i)
		}
	}
	return vout, nil
}

// AuditRefundTransaction checks a refund the counterparty asks us to
// co-sign. It must spend exactly the recorded fund output of leg into a
// single output worth no more than that output, carry the trade lock time,
// and keep its input non-final so the lock time is enforced.
func (f *Factory) AuditRefundTransaction(t *trade.Trade, leg trade.Party, tx *transaction.Transaction) error {
	if _, err := f.legNetwork(t, leg); err != nil {
		return err
	}
	fund, err := t.RequireFunded(leg)
	if err != nil {
		return err
	}
	lockTime, err := t.LockTimeValue()
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrInvalidTransaction)
	}
	if len(tx.Inputs) != 1 || len(tx.Outputs) != 1 {
		return fmt.Errorf("%w: refund has %d inputs and %d outputs, want 1 and 1",
			ErrAuditFailed, len(tx.Inputs), len(tx.Outputs))
	}
	in := tx.Inputs[0]
	if in.SourceTXID == nil || *in.SourceTXID != fund.TxID || in.SourceTxOutIndex != fund.Vout {
		return fmt.Errorf("%w: refund does not spend %s", ErrAuditFailed, fund)
	}
	if in.SequenceNumber == transaction.DefaultSequenceNumber {
		return fmt.Errorf("%w: refund input is final, lock time would be ignored", ErrAuditFailed)
	}
	if tx.LockTime != lockTime {
		return fmt.Errorf("%w: refund lock time %d, trade lock time %d", ErrAuditFailed, tx.LockTime, lockTime)
	}
	if v := tx.Outputs[0].Satoshis; v == 0 || v > fund.Amount {
		return fmt.Errorf("%w: refund pays %d of %d satoshis", ErrAuditFailed, v, fund.Amount)
	}
	return nil
}
