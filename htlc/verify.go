package htlc

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script/interpreter"
	"github.com/bsv-blockchain/go-sdk/script/interpreter/scriptflag"
	"github.com/bsv-blockchain/go-sdk/transaction"
)

// VerifyInput evaluates the unlocking script of tx's input against prev,
// the output it spends, under fork-id signature rules. enforceLockTime
// selects the rule set of chains that enforce OP_CHECKLOCKTIMEVERIFY;
// otherwise post-Genesis rules apply and the opcode does not constrain
// the spend.
func VerifyInput(tx *transaction.Transaction, inputIndex int, prev *transaction.TransactionOutput, enforceLockTime bool) error {
	if tx == nil || prev == nil || prev.LockingScript == nil {
		return fmt.Errorf("%w: transaction and spent output are required", ErrInvalidParams)
	}
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return fmt.Errorf("%w: input %d out of range", ErrInvalidParams, inputIndex)
	}
	if tx.Inputs[inputIndex].UnlockingScript == nil {
		return fmt.Errorf("%w: input %d has no unlocking script", ErrScriptFailed, inputIndex)
	}

	var err error
	if enforceLockTime {
		err = interpreter.NewEngine().Execute(
			interpreter.WithTx(tx, inputIndex, prev),
			interpreter.WithFlags(scriptflag.VerifyCheckLockTimeVerify),
			interpreter.WithForkID(),
		)
	} else {
		err = interpreter.NewEngine().Execute(
			interpreter.WithTx(tx, inputIndex, prev),
			interpreter.WithForkID(),
			interpreter.WithAfterGenesis(),
		)
	}
	if err != nil {
		return fmt.Errorf("%w: input %d: %w", ErrScriptFailed, inputIndex, err)
	}
	return nil
}
