// Package watcher polls chain clients for the confirmation of recorded fund
// transactions and stores the resulting contract outputs on their trades.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/acct-go/store"
	"github.com/bitfsorg/acct-go/trade"
)

// DefaultInterval is the polling period used by Run when none is given.
const DefaultInterval = 30 * time.Second

// OutputLookup finds a leg's confirmed contract output. It returns nil, nil
// while the output is not yet confirmed.
type OutputLookup interface {
	LookupConfirmedOutput(ctx context.Context, t *trade.Trade, leg trade.Party) (*trade.OutputRef, error)
}

// Event reports a contract output newly recorded on a trade.
type Event struct {
	TradeID string
	Leg     trade.Party
	Output  trade.OutputRef
}

// Config wires a Watcher.
type Config struct {
	Store store.Store
	// Chains maps network names to lookups; legs on other networks are skipped.
	Chains map[string]OutputLookup
	Log    *logrus.Entry
	// OnEvent, if set, is called for every recorded output.
	OnEvent func(Event)
}

// Watcher moves trade legs from funding to funded.
type Watcher struct {
	store   store.Store
	chains  map[string]OutputLookup
	log     *logrus.Entry
	onEvent func(Event)
}

// New validates cfg and returns a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Store == nil {
		return nil, errors.New("watcher: store is required")
	}
	if len(cfg.Chains) == 0 {
		return nil, errors.New("watcher: at least one chain is required")
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Watcher{
		store:   cfg.Store,
		chains:  cfg.Chains,
		log:     log.WithField("component", "watcher"),
		onEvent: cfg.OnEvent,
	}, nil
}

// Poll checks every leg in the funding stage once. A lookup failure on one
// leg is logged and does not stop the pass; the joined failures are returned
// alongside the events of the legs that succeeded.
func (w *Watcher) Poll(ctx context.Context) ([]Event, error) {
	trades, err := w.store.List()
	if err != nil {
		return nil, err
	}

	var (
		events []Event
		errs   []error
	)
	for _, t := range trades {
		for _, leg := range trade.Parties {
			if err := ctx.Err(); err != nil {
				return events, err
			}
			if t.Stage(leg) != trade.StageFunding {
				continue
			}
			chain, ok := w.chains[t.Input(leg).Network]
			if !ok {
				continue
			}
			ev, err := w.check(ctx, chain, t, leg)
			if err != nil {
				w.log.WithError(err).WithFields(logrus.Fields{
					"trade": t.ID(),
					"leg":   leg.String(),
				}).Warn("fund output lookup failed")
				errs = append(errs, fmt.Errorf("trade %s %s leg: %w", t.ID(), leg, err))
				continue
			}
			if ev != nil {
				events = append(events, *ev)
				if w.onEvent != nil {
					w.onEvent(*ev)
				}
			}
		}
	}
	return events, errors.Join(errs...)
}

func (w *Watcher) check(ctx context.Context, chain OutputLookup, t *trade.Trade, leg trade.Party) (*Event, error) {
	ref, err := chain.LookupConfirmedOutput(ctx, t, leg)
	if err != nil || ref == nil {
		return nil, err
	}

	err = w.store.Update(t.ID(), func(stored *trade.Trade) error {
		return stored.SetFundOutput(leg, *ref)
	})
	if errors.Is(err, trade.ErrAlreadySet) {
		// Recorded concurrently or by an earlier pass.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	w.log.WithFields(logrus.Fields{
		"trade":  t.ID(),
		"leg":    leg.String(),
		"output": ref.String(),
	}).Info("contract output confirmed")
	return &Event{TradeID: t.ID(), Leg: leg, Output: *ref}, nil
}

// Run polls every interval until ctx is done, then returns ctx.Err().
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.WithField("interval", interval).Debug("start watching")
	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.log.WithError(err).Debug("poll finished with errors")
		}
		select {
		case <-ctx.Done():
			w.log.Debug("stop watching")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
