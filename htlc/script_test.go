package htlc

import (
	"bytes"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/acct-go/trade"
)

func TestBuildLockScript(t *testing.T) {
	t.Run("requires counterparty key", func(t *testing.T) {
		lead := newKey(t)
		_, hash, err := trade.NewSecret()
		require.NoError(t, err)
		tr, err := trade.New(trade.Params{
			LeadInput:     trade.Input{Network: "regtest", Amount: 1},
			OtherInput:    trade.Input{Network: "regtest", Amount: 1},
			Contract:      trade.DefaultContract(),
			SecretHash:    hash,
			LeadPublicKey: lead.PubKey(),
		})
		require.NoError(t, err)
		for _, p := range trade.Parties {
			s, err := BuildLockScript(tr, p)
			assert.ErrorIs(t, err, trade.ErrMissingCounterpartyKey)
			assert.Nil(t, s)
		}
	})

	t.Run("invalid party", func(t *testing.T) {
		f := newFixture(t, trade.ScriptCooperative)
		_, err := BuildLockScript(f.trade, trade.Party(5))
		assert.ErrorIs(t, err, trade.ErrInvalidParty)
	})

	for _, kind := range []trade.ScriptKind{trade.ScriptCooperative, trade.ScriptTimeLocked} {
		t.Run(kind.String()+" deterministic", func(t *testing.T) {
			f := newFixture(t, kind)
			a, err := BuildLockScript(f.trade, trade.Lead)
			require.NoError(t, err)
			b, err := BuildLockScript(f.trade.Clone(), trade.Lead)
			require.NoError(t, err)
			assert.Equal(t, a.Bytes(), b.Bytes())

			o, err := BuildLockScript(f.trade, trade.Other)
			require.NoError(t, err)
			assert.NotEqual(t, a.Bytes(), o.Bytes(), "each leg pays the opposite party")
		})
	}

	t.Run("cooperative layout", func(t *testing.T) {
		f := newFixture(t, trade.ScriptCooperative)
		s, err := BuildLockScript(f.trade, trade.Lead)
		require.NoError(t, err)
		chunks, err := s.Chunks()
		require.NoError(t, err)
		require.Len(t, chunks, 13)

		hash := f.trade.SecretHash()
		assert.Equal(t, f.other.PubKey().Compressed(), chunks[0].Data)
		assert.Equal(t, script.OpCHECKSIGVERIFY, chunks[1].Op)
		assert.Equal(t, script.OpIF, chunks[2].Op)
		assert.Equal(t, script.OpSIZE, chunks[3].Op)
		assert.Equal(t, []byte{0x20}, chunks[4].Data)
		assert.Equal(t, script.OpHASH256, chunks[6].Op)
		assert.Equal(t, hash[:], chunks[7].Data)
		assert.Equal(t, script.OpELSE, chunks[9].Op)
		assert.Equal(t, f.lead.PubKey().Compressed(), chunks[10].Data)
		assert.Equal(t, script.OpENDIF, chunks[12].Op)
	})

	t.Run("time-locked requires lock time", func(t *testing.T) {
		f := newFixture(t, trade.ScriptTimeLocked)
		c := f.trade.Contract()
		tr, err := trade.New(trade.Params{
			LeadInput:     f.trade.Input(trade.Lead),
			OtherInput:    f.trade.Input(trade.Other),
			Contract:      c,
			SecretHash:    f.trade.SecretHash(),
			LeadPublicKey: f.lead.PubKey(),
		})
		require.NoError(t, err)
		require.NoError(t, tr.SetOtherPublicKey(f.other.PubKey()))
		_, err = BuildLockScript(tr, trade.Lead)
		assert.ErrorIs(t, err, trade.ErrMissingLockTime)
	})

	t.Run("time-locked embeds lock time", func(t *testing.T) {
		f := newFixture(t, trade.ScriptTimeLocked)
		s, err := BuildLockScript(f.trade, trade.Other)
		require.NoError(t, err)
		chunks, err := s.Chunks()
		require.NoError(t, err)
		require.Len(t, chunks, 15)
		lt, err := f.trade.LockTimeValue()
		require.NoError(t, err)
		assert.Equal(t, int64(lt), parseScriptNum(chunks[9].Data))
		assert.Equal(t, script.OpCHECKLOCKTIMEVERIFY, chunks[10].Op)
		assert.Equal(t, f.lead.PubKey().Compressed(), chunks[7].Data, "other's leg pays lead")
		assert.Equal(t, f.other.PubKey().Compressed(), chunks[12].Data)
	})
}

func TestLockScriptParams(t *testing.T) {
	_, err := LockScript(nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
	k := newKey(t).PubKey()
	_, err = LockScript(&Params{SenderKey: k, RecipientKey: k})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = LockScript(&Params{Kind: trade.ScriptTimeLocked, SenderKey: k, RecipientKey: k, SecretHash: trade.SecretHash{1}})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = LockScript(&Params{Kind: trade.ScriptKind(9), SenderKey: k, RecipientKey: k, SecretHash: trade.SecretHash{1}})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestParseLockScript(t *testing.T) {
	for _, kind := range []trade.ScriptKind{trade.ScriptCooperative, trade.ScriptTimeLocked} {
		t.Run(kind.String(), func(t *testing.T) {
			f := newFixture(t, kind)
			s, err := BuildLockScript(f.trade, trade.Lead)
			require.NoError(t, err)
			p, err := ParseLockScript(s)
			require.NoError(t, err)
			assert.Equal(t, kind, p.Kind)
			assert.Equal(t, f.trade.SecretHash(), p.SecretHash)
			assert.Equal(t, f.lead.PubKey().Compressed(), p.SenderKey.Compressed())
			assert.Equal(t, f.other.PubKey().Compressed(), p.RecipientKey.Compressed())
		})
	}

	t.Run("rejects other scripts", func(t *testing.T) {
		_, err := ParseLockScript(script.NewFromBytes([]byte{script.OpTRUE}))
		assert.ErrorIs(t, err, ErrUnrecognizedScript)

		f := newFixture(t, trade.ScriptCooperative)
		s, err := BuildLockScript(f.trade, trade.Lead)
		require.NoError(t, err)
		tampered := bytes.Clone(s.Bytes())
		tampered[len(tampered)-2] = script.OpCHECKSIGVERIFY
		_, err = ParseLockScript(script.NewFromBytes(tampered))
		assert.ErrorIs(t, err, ErrUnrecognizedScript)
	})
}

func TestScriptNum(t *testing.T) {
	tests := []struct {
		n    int64
		want []byte
	}{
		{0, nil},
		{1, []byte{0x01}},
		{32, []byte{0x20}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x00}},
		{255, []byte{0xff, 0x00}},
		{-1, []byte{0x81}},
		{-128, []byte{0x80, 0x80}},
		{1_700_000_000, []byte{0x00, 0xf1, 0x53, 0x65}},
		{int64(^uint32(0)), []byte{0xff, 0xff, 0xff, 0xff, 0x00}},
	}
	for _, tc := range tests {
		got := scriptNum(tc.n)
		assert.Equal(t, tc.want, got, "scriptNum(%d)", tc.n)
		assert.Equal(t, tc.n, parseScriptNum(got))
	}
}

func TestExtractSecret(t *testing.T) {
	f := newFixture(t, trade.ScriptCooperative)
	lock, err := BuildLockScript(f.trade, trade.Lead)
	require.NoError(t, err)
	tx, _ := spendTx(t, lock, 0, 0xffffffff)
	sig := signInput(t, tx, f.other)

	unlock, err := ClaimScript(trade.ScriptCooperative, sig, f.secret)
	require.NoError(t, err)
	tx.Inputs[0].UnlockingScript = unlock

	got, err := ExtractSecret(tx, f.trade.SecretHash())
	require.NoError(t, err)
	assert.Equal(t, f.secret, got)
	assert.True(t, IsClaim(trade.ScriptCooperative, unlock))

	refund, err := RefundScript(trade.ScriptCooperative, sig, sig)
	require.NoError(t, err)
	assert.False(t, IsClaim(trade.ScriptCooperative, refund))
	tx.Inputs[0].UnlockingScript = refund
	_, err = ExtractSecret(tx, f.trade.SecretHash())
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = ExtractSecret(nil, f.trade.SecretHash())
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestUnlockScriptArguments(t *testing.T) {
	sig := []byte{0x30, 0x01}
	secret := bytes.Repeat([]byte{7}, trade.SecretSize)

	_, err := ClaimScript(trade.ScriptCooperative, nil, secret)
	assert.ErrorIs(t, err, ErrMissingSignature)
	_, err = ClaimScript(trade.ScriptCooperative, sig, secret[:31])
	assert.ErrorIs(t, err, trade.ErrInvalidSecret)
	_, err = RefundScript(trade.ScriptCooperative, sig, nil)
	assert.ErrorIs(t, err, trade.ErrMissingCounterpartySignature)
	_, err = RefundScript(trade.ScriptCooperative, nil, sig)
	assert.ErrorIs(t, err, ErrMissingSignature)

	s, err := RefundScript(trade.ScriptTimeLocked, sig, nil)
	require.NoError(t, err)
	chunks, err := s.Chunks()
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}
