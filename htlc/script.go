// Package htlc builds and inspects the hash/time-locked contract scripts
// guarding each leg of a swap.
//
// Cooperative contract, sender S and recipient R:
//
//	<R_pub> OP_CHECKSIGVERIFY
//	OP_IF
//	  OP_SIZE <32> OP_EQUALVERIFY OP_HASH256 <secret_hash> OP_EQUAL
//	OP_ELSE
//	  <S_pub> OP_CHECKSIG
//	OP_ENDIF
//
// claimed with <secret> OP_1 <R_sig> and refunded with <S_sig> OP_0 <R_sig>.
//
// Time-locked contract:
//
//	OP_IF
//	  OP_SIZE <32> OP_EQUALVERIFY OP_HASH256 <secret_hash> OP_EQUALVERIFY <R_pub>
//	OP_ELSE
//	  <lock_time> OP_CHECKLOCKTIMEVERIFY OP_DROP <S_pub>
//	OP_ENDIF
//	OP_CHECKSIG
//
// claimed with <R_sig> <secret> OP_1 and refunded after the lock time with
// <S_sig> OP_0.
package htlc

import (
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/acct-go/trade"
)

// Params are the inputs to a contract script.
type Params struct {
	Kind         trade.ScriptKind
	SenderKey    *ec.PublicKey // funds the output, refunds it
	RecipientKey *ec.PublicKey // claims the output with the secret
	SecretHash   trade.SecretHash
	LockTime     uint32 // time-locked contracts only
}

// BuildLockScript derives the script guarding the funds actingAs sends to
// the opposite party. Both parties derive identical bytes from the same
// trade state.
func BuildLockScript(t *trade.Trade, actingAs trade.Party) (*script.Script, error) {
	p, err := ParamsFor(t, actingAs)
	if err != nil {
		return nil, err
	}
	return LockScript(p)
}

// ParamsFor resolves the script parameters for the leg funded by actingAs.
func ParamsFor(t *trade.Trade, actingAs trade.Party) (*Params, error) {
	if !actingAs.Valid() {
		return nil, trade.ErrInvalidParty
	}
	sender, err := t.PublicKey(actingAs)
	if err != nil {
		return nil, err
	}
	recipient, err := t.PublicKey(actingAs.Opposite())
	if err != nil {
		return nil, err
	}
	p := &Params{
		Kind:         t.Contract().Script,
		SenderKey:    sender,
		RecipientKey: recipient,
		SecretHash:   t.SecretHash(),
	}
	if p.Kind == trade.ScriptTimeLocked {
		if p.LockTime, err = t.LockTimeValue(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// LockScript assembles the contract script for p.
func LockScript(p *Params) (*script.Script, error) {
	if p == nil || p.SenderKey == nil || p.RecipientKey == nil {
		return nil, fmt.Errorf("%w: both public keys are required", ErrInvalidParams)
	}
	if p.SecretHash.IsZero() {
		return nil, fmt.Errorf("%w: secret hash is required", ErrInvalidParams)
	}
	b := &builder{s: &script.Script{}}
	switch p.Kind {
	case trade.ScriptCooperative:
		b.push(p.RecipientKey.Compressed())
		b.op(script.OpCHECKSIGVERIFY, script.OpIF)
		b.secretCheck(p.SecretHash)
		b.op(script.OpEQUAL, script.OpELSE)
		b.push(p.SenderKey.Compressed())
		b.op(script.OpCHECKSIG, script.OpENDIF)
	case trade.ScriptTimeLocked:
		if p.LockTime == 0 {
			return nil, fmt.Errorf("%w: lock time is required", ErrInvalidParams)
		}
		b.op(script.OpIF)
		b.secretCheck(p.SecretHash)
		b.op(script.OpEQUALVERIFY)
		b.push(p.RecipientKey.Compressed())
		b.op(script.OpELSE)
		b.push(scriptNum(int64(p.LockTime)))
		b.op(script.OpCHECKLOCKTIMEVERIFY, script.OpDROP)
		b.push(p.SenderKey.Compressed())
		b.op(script.OpENDIF, script.OpCHECKSIG)
	default:
		return nil, fmt.Errorf("%w: unknown script kind %s", ErrInvalidParams, p.Kind)
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScriptBuild, b.err)
	}
	return b.s, nil
}

// builder appends to a script, keeping the first error.
type builder struct {
	s   *script.Script
	err error
}

func (b *builder) op(ops ...byte) {
	if b.err == nil {
		b.err = b.s.AppendOpcodes(ops...)
	}
}

func (b *builder) push(data []byte) {
	if b.err == nil {
		b.err = b.s.AppendPushData(data)
	}
}

// secretCheck leaves HASH256(secret) and the expected hash on the stack
// after pinning the secret to trade.SecretSize bytes.
func (b *builder) secretCheck(h trade.SecretHash) {
	b.op(script.OpSIZE)
	b.push(scriptNum(trade.SecretSize))
	b.op(script.OpEQUALVERIFY, script.OpHASH256)
	b.push(h[:])
}

// scriptNum encodes n as a minimal little-endian script number.
func scriptNum(n int64) []byte {
	if n == 0 {
		return nil
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var out []byte
	for n > 0 {
		out = append(out, byte(n&0xff))
		n >>= 8
	}
	if out[len(out)-1]&0x80 != 0 {
		if neg {
			out = append(out, 0x80)
		} else {
			out = append(out, 0x00)
		}
	} else if neg {
		out[len(out)-1] |= 0x80
	}
	return out
}

// parseScriptNum decodes a little-endian script number.
func parseScriptNum(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var n int64
	for i, v := range b {
		n |= int64(v) << (8 * i)
	}
	if b[len(b)-1]&0x80 != 0 {
		n &^= int64(0x80) << (8 * (len(b) - 1))
		return -n
	}
	return n
}
