package htlc

import (
	"bytes"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/acct-go/trade"
)

// ParseLockScript recognizes a contract script built by LockScript and
// returns its parameters.
func ParseLockScript(s *script.Script) (*Params, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil script", ErrInvalidParams)
	}
	chunks, err := s.Chunks()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnrecognizedScript, err)
	}
	var p *Params
	switch {
	case len(chunks) == 13 && chunks[1].Op == script.OpCHECKSIGVERIFY:
		p, err = parseCooperative(chunks)
	case len(chunks) == 15 && chunks[0].Op == script.OpIF:
		p, err = parseTimeLocked(chunks)
	default:
		return nil, fmt.Errorf("%w: %d chunks", ErrUnrecognizedScript, len(chunks))
	}
	if err != nil {
		return nil, err
	}
	// Round-trip to reject scripts that only resemble a contract.
	rebuilt, err := LockScript(p)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(rebuilt.Bytes(), s.Bytes()) {
		return nil, ErrUnrecognizedScript
	}
	return p, nil
}

func parseCooperative(c []*script.ScriptChunk) (*Params, error) {
	recipient, err := chunkKey(c[0])
	if err != nil {
		return nil, err
	}
	h, err := chunkHash(c[7])
	if err != nil {
		return nil, err
	}
	sender, err := chunkKey(c[10])
	if err != nil {
		return nil, err
	}
	return &Params{
		Kind:         trade.ScriptCooperative,
		SenderKey:    sender,
		RecipientKey: recipient,
		SecretHash:   h,
	}, nil
}

func parseTimeLocked(c []*script.ScriptChunk) (*Params, error) {
	h, err := chunkHash(c[5])
	if err != nil {
		return nil, err
	}
	recipient, err := chunkKey(c[7])
	if err != nil {
		return nil, err
	}
	lockTime := parseScriptNum(c[9].Data)
	if lockTime <= 0 || lockTime > int64(^uint32(0)) {
		return nil, fmt.Errorf("%w: lock time %d", ErrUnrecognizedScript, lockTime)
	}
	sender, err := chunkKey(c[12])
	if err != nil {
		return nil, err
	}
	return &Params{
		Kind:         trade.ScriptTimeLocked,
		SenderKey:    sender,
		RecipientKey: recipient,
		SecretHash:   h,
		LockTime:     uint32(lockTime),
	}, nil
}

func chunkKey(c *script.ScriptChunk) (*ec.PublicKey, error) {
	k, err := ec.PublicKeyFromBytes(c.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %w", ErrUnrecognizedScript, err)
	}
	return k, nil
}

func chunkHash(c *script.ScriptChunk) (trade.SecretHash, error) {
	var h trade.SecretHash
	if len(c.Data) != len(h) {
		return h, fmt.Errorf("%w: secret hash must be %d bytes", ErrUnrecognizedScript, len(h))
	}
	copy(h[:], c.Data)
	return h, nil
}
