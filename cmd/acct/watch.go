package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/trade"
	"github.com/bitfsorg/acct-go/watcher"
)

var watch = cli.Command{
	Name:  "watch",
	Usage: "poll the nodes until fund transactions of stored trades confirm",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "once",
			Usage: "poll a single time and exit",
		},
	},
	Action: watchAction,
}

func watchAction(ctx *cli.Context) error {
	s, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trades, err := s.store.List()
	if err != nil {
		return err
	}
	for _, t := range trades {
		for _, p := range trade.Parties {
			if t.Stage(p) != trade.StageFunding {
				continue
			}
			name := t.Input(p).Network
			if err := s.connect(name); err != nil {
				s.log.WithError(err).WithField("network", name).Warn("network not watched")
			}
		}
	}
	if len(s.chains) == 0 {
		s.log.Info("no fund transactions awaiting confirmation")
		return nil
	}

	chains := make(map[string]watcher.OutputLookup, len(s.chains))
	for name, c := range s.chains {
		chains[name] = c
	}
	w, err := watcher.New(watcher.Config{
		Store:  s.store,
		Chains: chains,
		Log:    s.log,
		OnEvent: func(e watcher.Event) {
			_ = printJSON(map[string]string{
				"trade":  e.TradeID,
				"leg":    e.Leg.String(),
				"output": e.Output.String(),
			})
		},
	})
	if err != nil {
		return err
	}

	if ctx.Bool("once") {
		_, err := w.Poll(ctx.Context)
		return err
	}
	err = w.Run(ctx.Context, s.cfg.PollInterval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
