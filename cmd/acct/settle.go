package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/store"
	"github.com/bitfsorg/acct-go/trade"
	"github.com/bitfsorg/acct-go/wallet"
)

var errLegUnconfirmed = errors.New("fund transaction not yet confirmed")

var asFlag = &cli.StringFlag{
	Name:     "as",
	Usage:    "our role in the trade, lead or other",
	Required: true,
}

var indexFlag = &cli.UintFlag{
	Name:  "index",
	Usage: "trade key index used when the trade was opened or accepted",
}

var auditfund = cli.Command{
	Name:  "auditfund",
	Usage: "check a counterparty fund transaction before relying on it",
	Flags: []cli.Flag{
		tradeFlag,
		&cli.StringFlag{
			Name:     "leg",
			Usage:    "the funding party, lead or other",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "the fund transaction in hex",
			Required: true,
		},
	},
	Action: auditFundAction,
}

var fund = cli.Command{
	Name:   "fund",
	Usage:  "pay our committed amount into the contract and broadcast it",
	Flags:  []cli.Flag{tradeFlag, asFlag},
	Action: fundAction,
}

var complete = cli.Command{
	Name:  "complete",
	Usage: "claim the counterparty's contract output by revealing the secret",
	Flags: []cli.Flag{
		tradeFlag,
		asFlag,
		indexFlag,
		&cli.StringFlag{
			Name:  "secret",
			Usage: "the trade secret in hex, derived from the wallet when we lead",
		},
		&cli.StringFlag{
			Name:  "to",
			Usage: "address receiving the coins, our funding address by default",
		},
	},
	Action: completeAction,
}

var refundFlags = []cli.Flag{
	tradeFlag,
	asFlag,
	&cli.StringFlag{
		Name:  "to",
		Usage: "address receiving the refund, our funding address by default",
	},
}

var refundtx = cli.Command{
	Name:   "refundtx",
	Usage:  "print the unsigned refund of our contract output for the counterparty to sign",
	Flags:  refundFlags,
	Action: refundTxAction,
}

var signrefund = cli.Command{
	Name:  "signrefund",
	Usage: "audit and sign a refund the counterparty asks us to co-sign",
	Flags: []cli.Flag{
		tradeFlag,
		asFlag,
		indexFlag,
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "the unsigned refund transaction in hex",
			Required: true,
		},
	},
	Action: signRefundAction,
}

var refund = cli.Command{
	Name:  "refund",
	Usage: "sign and broadcast the refund of our contract output",
	Flags: append(append([]cli.Flag{}, refundFlags...),
		indexFlag,
		&cli.StringFlag{
			Name:  "their-sig",
			Usage: "the counterparty refund signature in hex, cooperative contracts only",
		},
	),
	Action: refundAction,
}

func auditFundAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	leg, err := parseParty(ctx, "leg")
	if err != nil {
		return err
	}
	t, err := s.loadTrade(ctx.String("trade"))
	if err != nil {
		return err
	}
	tx, err := parseTxHex(ctx.String("tx"))
	if err != nil {
		return err
	}
	vout, err := s.factory.AuditFundTransaction(t, leg, tx)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"txid": tx.TxID().String(),
		"vout": vout,
	})
}

func fundAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	as, err := parseParty(ctx, "as")
	if err != nil {
		return err
	}
	t, err := s.loadTrade(ctx.String("trade"), as)
	if err != nil {
		return err
	}
	if _, ok := t.FundTxID(as); ok {
		return fmt.Errorf("%s leg of trade %s: %w", as, t.ID(), trade.ErrAlreadySet)
	}
	tx, err := s.factory.BuildFundTransaction(ctx.Context, t, as)
	if err != nil {
		return err
	}
	txid, err := s.broadcast(ctx.Context, t, as, store.TxFund, tx)
	if err != nil {
		return err
	}
	if err := s.store.Update(t.ID(), func(t *trade.Trade) error {
		return t.SetFundTxID(as, *tx.TxID())
	}); err != nil {
		return err
	}
	return printJSON(map[string]string{
		"txid": txid,
		"tx":   hex.EncodeToString(tx.Bytes()),
	})
}

// payoutAddress returns the --to flag, or our funding address on network.
func (s *session) payoutAddress(ctx *cli.Context, network string) (string, error) {
	if to := ctx.String("to"); to != "" {
		return to, nil
	}
	chain, ok := s.chains[network]
	if !ok {
		return "", fmt.Errorf("no chain client for %s", network)
	}
	return chain.Address(), nil
}

func completeAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	as, err := parseParty(ctx, "as")
	if err != nil {
		return err
	}
	leg := as.Opposite()
	t, err := s.loadTrade(ctx.String("trade"), leg)
	if err != nil {
		return err
	}

	var secret []byte
	switch {
	case ctx.String("secret") != "":
		if secret, err = hex.DecodeString(ctx.String("secret")); err != nil {
			return fmt.Errorf("secret: %w", err)
		}
	case as == trade.Lead:
		if secret, _, err = wallet.DeriveTradeSecret(s.seed, t.ID()); err != nil {
			return err
		}
	default:
		return errors.New("the other party needs --secret, see extractsecret")
	}

	to, err := s.payoutAddress(ctx, t.Input(leg).Network)
	if err != nil {
		return err
	}
	tx, err := s.factory.BuildCompletionTransaction(t, as, secret, to, tradeKeyID(ctx.Uint("index")))
	if err != nil {
		return err
	}
	txid, err := s.broadcast(ctx.Context, t, leg, store.TxCompletion, tx)
	if err != nil {
		return err
	}
	if err := s.store.Update(t.ID(), func(t *trade.Trade) error {
		return t.SetOutcome(leg, trade.OutcomeCompleted)
	}); err != nil {
		return err
	}
	return printJSON(map[string]string{"txid": txid})
}

// unsignedRefund rebuilds the refund of our leg. The transaction is
// deterministic so both parties sign the same bytes.
func (s *session) unsignedRefund(ctx *cli.Context) (*trade.Trade, trade.Party, *transaction.Transaction, error) {
	as, err := parseParty(ctx, "as")
	if err != nil {
		return nil, 0, nil, err
	}
	t, err := s.loadTrade(ctx.String("trade"), as)
	if err != nil {
		return nil, 0, nil, err
	}
	to, err := s.payoutAddress(ctx, t.Input(as).Network)
	if err != nil {
		return nil, 0, nil, err
	}
	tx, err := s.factory.BuildUnsignedRefundTransaction(t, as, to)
	if err != nil {
		return nil, 0, nil, err
	}
	return t, as, tx, nil
}

func refundTxAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	_, _, tx, err := s.unsignedRefund(ctx)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"tx": hex.EncodeToString(tx.Bytes())})
}

func signRefundAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	as, err := parseParty(ctx, "as")
	if err != nil {
		return err
	}
	leg := as.Opposite()
	t, err := s.loadTrade(ctx.String("trade"))
	if err != nil {
		return err
	}
	if err := checkCoSign(t, as); err != nil {
		return err
	}
	tx, err := parseTxHex(ctx.String("tx"))
	if err != nil {
		return err
	}
	if err := s.factory.AuditRefundTransaction(t, leg, tx); err != nil {
		return err
	}
	sig, err := s.factory.SignTransaction(t, leg, tx, 0, tradeKeyID(ctx.Uint("index")))
	if err != nil {
		return err
	}
	s.log.WithField("trade", t.ID()).Info("refund co-signed")
	return printJSON(map[string]string{"sig": hex.EncodeToString(sig)})
}

// checkCoSign refuses to sign the counterparty's refund unless our own leg
// is either unfunded or funded and still unsettled.
func checkCoSign(t *trade.Trade, as trade.Party) error {
	switch st := t.Stage(as); st {
	case trade.StageReady, trade.StageFunded:
		return nil
	case trade.StageNegotiating:
		return trade.ErrMissingCounterpartyKey
	case trade.StageFunding:
		return fmt.Errorf("%s leg of trade %s: %w", as, t.ID(), errLegUnconfirmed)
	default:
		return fmt.Errorf("%w: %s leg is %s", trade.ErrTradeSettled, as, st)
	}
}

func refundAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, as, tx, err := s.unsignedRefund(ctx)
	if err != nil {
		return err
	}
	var theirSig []byte
	if v := ctx.String("their-sig"); v != "" {
		if theirSig, err = hex.DecodeString(v); err != nil {
			return fmt.Errorf("their-sig: %w", err)
		}
	}
	if t.Contract().Script == trade.ScriptCooperative && theirSig == nil {
		return fmt.Errorf("%w: pass --their-sig from signrefund", trade.ErrMissingCounterpartySignature)
	}
	mySig, err := s.factory.SignTransaction(t, as, tx, 0, tradeKeyID(ctx.Uint("index")))
	if err != nil {
		return err
	}
	if err := s.factory.CompleteRefundTransaction(t, as, tx, mySig, theirSig); err != nil {
		return err
	}
	txid, err := s.broadcast(ctx.Context, t, as, store.TxRefund, tx)
	if err != nil {
		return err
	}
	if err := s.store.Update(t.ID(), func(t *trade.Trade) error {
		return t.SetOutcome(as, trade.OutcomeRefunded)
	}); err != nil {
		return err
	}
	return printJSON(map[string]string{"txid": txid})
}
