package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/network"
	"github.com/bitfsorg/acct-go/trade"
	"github.com/bitfsorg/acct-go/wallet"
)

var tradeFlag = &cli.StringFlag{
	Name:     "trade",
	Usage:    "the trade id",
	Required: true,
}

var newtrade = cli.Command{
	Name:  "newtrade",
	Usage: "open a trade as the lead party",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "send-network",
			Usage:    "network the lead pays on",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "send-amount",
			Usage:    "coin amount the lead pays",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "receive-network",
			Usage:    "network the other party pays on",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "receive-amount",
			Usage:    "coin amount the other party pays",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "script",
			Usage: "contract script, cooperative or timelocked",
			Value: trade.ScriptCooperative.String(),
		},
		&cli.UintFlag{
			Name:  "index",
			Usage: "trade key index",
		},
	},
	Action: newTradeAction,
}

var accepttrade = cli.Command{
	Name:  "accept",
	Usage: "record the counterparty key and the lock time of a trade, importing it first if needed",
	Flags: []cli.Flag{
		tradeFlag,
		&cli.StringFlag{
			Name:  "import",
			Usage: "trade JSON received from the lead party",
		},
		indexFlag,
		&cli.StringFlag{
			Name:  "pubkey",
			Usage: "public key of the other party in hex",
		},
		&cli.Int64Flag{
			Name:  "locktime",
			Usage: "agreed lock time as unix seconds",
		},
		&cli.DurationFlag{
			Name:  "lock-in",
			Usage: "propose a lock time this far in the future",
		},
	},
	Action: acceptTradeAction,
}

var listtrades = cli.Command{
	Name:   "trades",
	Usage:  "list stored trades",
	Action: listTradesAction,
}

var lockscript = cli.Command{
	Name:  "lockscript",
	Usage: "print the contract locking script of a trade leg",
	Flags: []cli.Flag{
		tradeFlag,
		&cli.StringFlag{
			Name:  "leg",
			Usage: "the paying party, lead or other",
			Value: trade.Lead.String(),
		},
	},
	Action: lockScriptAction,
}

func parseInput(networkName, amount string) (trade.Input, error) {
	params, err := registry.Lookup(networkName)
	if err != nil {
		return trade.Input{}, err
	}
	sat, err := network.ParseCoin(amount, params.DecimalPlaces)
	if err != nil {
		return trade.Input{}, err
	}
	return trade.Input{Network: params.Name, Amount: sat}, nil
}

func newTradeAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	send, err := parseInput(ctx.String("send-network"), ctx.String("send-amount"))
	if err != nil {
		return err
	}
	receive, err := parseInput(ctx.String("receive-network"), ctx.String("receive-amount"))
	if err != nil {
		return err
	}
	kind, err := trade.ParseScriptKind(ctx.String("script"))
	if err != nil {
		return err
	}
	contract, err := s.cfg.Contract(kind)
	if err != nil {
		return err
	}
	kp, err := s.tradeKey(uint32(ctx.Uint("index")))
	if err != nil {
		return err
	}

	id := uuid.New().String()
	_, hash, err := wallet.DeriveTradeSecret(s.seed, id)
	if err != nil {
		return err
	}
	t, err := trade.New(trade.Params{
		ID:            id,
		LeadInput:     send,
		OtherInput:    receive,
		Contract:      contract,
		SecretHash:    hash,
		LeadPublicKey: kp.PublicKey,
	})
	if err != nil {
		return err
	}
	if err := s.factory.CheckTrade(t); err != nil {
		return err
	}
	if err := s.store.Create(t); err != nil {
		return err
	}
	s.log.WithField("trade", id).Info("trade created")
	return printJSON(t)
}

func acceptTradeAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id := ctx.String("trade")
	now := time.Now().Truncate(time.Second)
	if raw := ctx.String("import"); raw != "" {
		var t trade.Trade
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return fmt.Errorf("import trade: %w", err)
		}
		if t.ID() != id {
			return fmt.Errorf("import trade: got id %s, want %s", t.ID(), id)
		}
		contract, err := s.cfg.Contract(t.Contract().Script)
		if err != nil {
			return err
		}
		kp, err := s.tradeKey(uint32(ctx.Uint("index")))
		if err != nil {
			return err
		}
		if err := checkImport(&t, contract, kp.PublicKey, now); err != nil {
			return fmt.Errorf("import trade: %w", err)
		}
		if err := s.factory.CheckTrade(&t); err != nil {
			return err
		}
		if err := s.store.Create(&t); err != nil {
			return err
		}
	}

	var lockTime time.Time
	switch {
	case ctx.IsSet("locktime") && ctx.IsSet("lock-in"):
		return &invalidUsageError{ctx, ctx.Command.Name}
	case ctx.IsSet("locktime"):
		lockTime = time.Unix(ctx.Int64("locktime"), 0)
	case ctx.IsSet("lock-in"):
		lockTime = now.Add(ctx.Duration("lock-in"))
	}

	err = s.store.Update(id, func(t *trade.Trade) error {
		if v := ctx.String("pubkey"); v != "" {
			k, err := trade.ParsePublicKey(v)
			if err != nil {
				return err
			}
			if err := t.SetOtherPublicKey(k); err != nil {
				return err
			}
		}
		if !lockTime.IsZero() {
			if err := t.SetLockTime(lockTime, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	t, err := s.store.Get(id)
	if err != nil {
		return err
	}
	return printJSON(t)
}

// checkImport vets a trade received from the lead before it is stored.
// The contract must equal ours and no leg may carry funding state. A lock
// time already attached must fall inside the contract window from now, and
// an attached counterparty key must be ours.
func checkImport(t *trade.Trade, contract trade.Contract, ours *ec.PublicKey, now time.Time) error {
	if t.Contract() != contract {
		return fmt.Errorf("%w: got %+v, want %+v", trade.ErrInvalidContract, t.Contract(), contract)
	}
	for _, p := range trade.Parties {
		_, funding := t.FundTxID(p)
		_, settled := t.Outcome(p)
		_, err := t.FundOutput(p)
		if funding || settled || err == nil {
			return fmt.Errorf("%w: %s leg carries funding state", trade.ErrInvalidTrade, p)
		}
	}
	if lt, err := t.LockTime(); err == nil {
		if err := t.Contract().CheckLockTime(lt, now); err != nil {
			return err
		}
	}
	if k, err := t.PublicKey(trade.Other); err == nil && !bytes.Equal(k.Compressed(), ours.Compressed()) {
		return fmt.Errorf("%w: other public key is not ours", trade.ErrInvalidTrade)
	}
	return nil
}

type tradeSummary struct {
	ID       string    `json:"id"`
	Script   string    `json:"script"`
	Legs     []legView `json:"legs"`
	LockTime int64     `json:"lock_time,omitempty"`
}

type legView struct {
	Party   string `json:"party"`
	Network string `json:"network"`
	Amount  string `json:"amount"`
	Stage   string `json:"stage"`
}

func listTradesAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	trades, err := st.List()
	if err != nil {
		return err
	}
	out := make([]tradeSummary, 0, len(trades))
	for _, t := range trades {
		sum := tradeSummary{ID: t.ID(), Script: t.Contract().Script.String()}
		if lt, err := t.LockTime(); err == nil {
			sum.LockTime = lt.Unix()
		}
		for _, p := range trade.Parties {
			in := t.Input(p)
			places := int32(8)
			if params, err := registry.Lookup(in.Network); err == nil {
				places = params.DecimalPlaces
			}
			sum.Legs = append(sum.Legs, legView{
				Party:   p.String(),
				Network: in.Network,
				Amount:  network.SatToCoin(in.Amount, places),
				Stage:   t.Stage(p).String(),
			})
		}
		out = append(out, sum)
	}
	return printJSON(out)
}

func lockScriptAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	leg, err := parseParty(ctx, "leg")
	if err != nil {
		return err
	}
	t, err := st.Get(ctx.String("trade"))
	if err != nil {
		return err
	}
	params, err := htlc.ParamsFor(t, leg)
	if err != nil {
		return err
	}
	lock, err := htlc.LockScript(params)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"network": t.Input(leg).Network,
		"script":  hex.EncodeToString(lock.Bytes()),
	})
}
