package htlc

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/bitfsorg/acct-go/trade"
)

// ClaimScript assembles the unlocking script that spends a contract output
// by revealing secret with the recipient's signature.
func ClaimScript(kind trade.ScriptKind, recipientSig, secret []byte) (*script.Script, error) {
	if len(recipientSig) == 0 {
		return nil, fmt.Errorf("%w: recipient signature", ErrMissingSignature)
	}
	if len(secret) != trade.SecretSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", trade.ErrInvalidSecret, trade.SecretSize, len(secret))
	}
	b := &builder{s: &script.Script{}}
	switch kind {
	case trade.ScriptCooperative:
		b.push(secret)
		b.op(script.OpTRUE)
		b.push(recipientSig)
	case trade.ScriptTimeLocked:
		b.push(recipientSig)
		b.push(secret)
		b.op(script.OpTRUE)
	default:
		return nil, fmt.Errorf("%w: unknown script kind %s", ErrInvalidParams, kind)
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, b.err)
	}
	return b.s, nil
}

// RefundScript assembles the unlocking script that returns a contract
// output to its sender. Cooperative contracts need both signatures;
// time-locked contracts ignore recipientSig.
func RefundScript(kind trade.ScriptKind, senderSig, recipientSig []byte) (*script.Script, error) {
	if len(senderSig) == 0 {
		return nil, fmt.Errorf("%w: sender signature", ErrMissingSignature)
	}
	b := &builder{s: &script.Script{}}
	switch kind {
	case trade.ScriptCooperative:
		if len(recipientSig) == 0 {
			return nil, trade.ErrMissingCounterpartySignature
		}
		b.push(senderSig)
		b.op(script.OpFALSE)
		b.push(recipientSig)
	case trade.ScriptTimeLocked:
		b.push(senderSig)
		b.op(script.OpFALSE)
	default:
		return nil, fmt.Errorf("%w: unknown script kind %s", ErrInvalidParams, kind)
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, b.err)
	}
	return b.s, nil
}

// IsClaim reports whether unlock selects the secret-revealing branch of a
// contract of the given kind.
func IsClaim(kind trade.ScriptKind, unlock *script.Script) bool {
	if unlock == nil {
		return false
	}
	chunks, err := unlock.Chunks()
	if err != nil {
		return false
	}
	switch kind {
	case trade.ScriptCooperative:
		return len(chunks) == 3 && isTrue(chunks[1]) && len(chunks[0].Data) == trade.SecretSize
	case trade.ScriptTimeLocked:
		return len(chunks) == 3 && isTrue(chunks[2]) && len(chunks[1].Data) == trade.SecretSize
	}
	return false
}

// ExtractSecret finds the secret revealed by a claim on any input of tx.
// Pushes that do not hash to h are ignored.
func ExtractSecret(tx *transaction.Transaction, h trade.SecretHash) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: nil transaction", ErrInvalidParams)
	}
	for _, input := range tx.Inputs {
		if input.UnlockingScript == nil {
			continue
		}
		chunks, err := input.UnlockingScript.Chunks()
		if err != nil {
			continue
		}
		for _, c := range chunks {
			if len(c.Data) == trade.SecretSize && h.Matches(c.Data) {
				return append([]byte(nil), c.Data...), nil
			}
		}
	}
	return nil, ErrSecretNotFound
}

func isTrue(c *script.ScriptChunk) bool {
	return c.Op == script.OpTRUE || c.Op == script.Op1
}
