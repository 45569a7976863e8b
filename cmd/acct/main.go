package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsv-blockchain/go-sdk/transaction"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/config"
	"github.com/bitfsorg/acct-go/network"
	"github.com/bitfsorg/acct-go/store"
	"github.com/bitfsorg/acct-go/swap"
	"github.com/bitfsorg/acct-go/trade"
	"github.com/bitfsorg/acct-go/wallet"
)

var registry = network.DefaultRegistry()

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "datadir",
		Usage: "directory holding the config file and the trade database",
		Value: config.DefaultDataDir(),
	},
	&cli.StringFlag{
		Name:  "network",
		Usage: "network used for wallet addresses and node access, overrides the config file",
	},
	&cli.StringFlag{
		Name:    "mnemonic",
		Usage:   "BIP39 mnemonic of the wallet",
		EnvVars: []string{"ACCT_MNEMONIC"},
	},
	&cli.StringFlag{
		Name:    "passphrase",
		Usage:   "optional BIP39 passphrase",
		EnvVars: []string{"ACCT_PASSPHRASE"},
	},
}

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "acct"
	app.Usage = "cross-chain atomic swaps between BSV and BCH"
	app.Flags = globalFlags
	app.Commands = append(
		app.Commands,
		&networks,
		&newmnemonic,
		&pubkey,
		&address,
		&newsecret,
		&extractsecret,
		&newtrade,
		&accepttrade,
		&listtrades,
		&lockscript,
		&auditfund,
		&fund,
		&complete,
		&refundtx,
		&signrefund,
		&refund,
		&watch,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fatal(err)
	}
}

// loadConfig reads the config file of --datadir and applies the global
// flag overrides.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	dataDir := ctx.String("datadir")
	cfg, err := config.LoadOrDefault(config.ConfigPath(dataDir))
	if err != nil {
		return config.Config{}, err
	}
	cfg.DataDir = dataDir
	if ctx.IsSet("network") {
		cfg.Network = ctx.String("network")
	}
	if err := config.ValidateConfig(cfg, registry); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger returns the command logger configured by cfg. The returned
// cleanup closes the log file, if any.
func newLogger(cfg config.Config) (*log.Entry, func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	logger := log.New()
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	cleanup := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		cleanup = func() { _ = f.Close() }
	}
	return log.NewEntry(logger), cleanup, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	return store.OpenBoltStore(config.DBPath(cfg.DataDir))
}

// openWallet returns the wallet for cfg.Network and its seed.
func openWallet(ctx *cli.Context, cfg config.Config) (*wallet.Wallet, []byte, error) {
	mnemonic := ctx.String("mnemonic")
	if mnemonic == "" {
		return nil, nil, errors.New("a wallet mnemonic is required: set --mnemonic or ACCT_MNEMONIC")
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, ctx.String("passphrase"))
	if err != nil {
		return nil, nil, err
	}
	params, err := registry.Lookup(cfg.Network)
	if err != nil {
		return nil, nil, err
	}
	w, err := wallet.NewWallet(seed, params)
	if err != nil {
		return nil, nil, err
	}
	return w, seed, nil
}

// rpcEnv returns the ACCT_RPC_* variables of the process environment.
func rpcEnv() map[string]string {
	env := make(map[string]string)
	for _, k := range []string{network.EnvRPCURL, network.EnvRPCUser, network.EnvRPCPass} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env
}

// newChainClient connects to the node of the named network. The RPC
// settings of the config file apply to cfg.Network only; other networks
// fall back to their local presets.
func newChainClient(cfg config.Config, name string, w *wallet.Wallet, logger *log.Entry) (*network.ChainClient, error) {
	params, err := registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	var flags *network.RPCConfig
	if name == cfg.Network {
		flags = &network.RPCConfig{URL: cfg.RPCURL, User: cfg.RPCUser, Password: cfg.RPCPassword}
	}
	rpcCfg, err := network.ResolveConfig(flags, rpcEnv(), params)
	if err != nil {
		return nil, fmt.Errorf("%s node: %w", name, err)
	}
	kp, err := w.DeriveFundingKey(0)
	if err != nil {
		return nil, err
	}
	return network.NewChainClient(network.ChainClientConfig{
		Service:          network.NewBreakerService(name, network.NewRPCClient(*rpcCfg)),
		Params:           params,
		FundingKey:       kp.PrivateKey,
		FeePerKB:         cfg.FeeRate,
		MinConfirmations: cfg.MinConfirmations,
		Log:              logger,
	})
}

// session bundles what the trade commands need.
type session struct {
	cfg     config.Config
	log     *log.Entry
	store   store.Store
	wallet  *wallet.Wallet
	seed    []byte
	keyring *wallet.Keyring
	chains  map[string]*network.ChainClient
	factory *swap.Factory
}

// openSession loads the configuration, the trade store and the wallet.
// Chain clients are added with connect.
func openSession(ctx *cli.Context) (*session, func(), error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	w, seed, err := openWallet(ctx, cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	st, err := openStore(cfg)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	cleanup := func() {
		_ = st.Close()
		closeLog()
	}

	s := &session{
		cfg:     cfg,
		log:     logger,
		store:   st,
		wallet:  w,
		seed:    seed,
		keyring: wallet.NewKeyring(),
		chains:  make(map[string]*network.ChainClient),
	}
	s.keyring.Unlock(w)
	if err := s.connect(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

// connect adds chain clients for the named networks and rebuilds the
// factory over every connected chain.
func (s *session) connect(names ...string) error {
	for _, name := range names {
		if _, ok := s.chains[name]; ok {
			continue
		}
		c, err := newChainClient(s.cfg, name, s.wallet, s.log)
		if err != nil {
			return err
		}
		s.chains[name] = c
	}
	clients := make(map[string]swap.ChainClient, len(s.chains))
	for name, c := range s.chains {
		clients[name] = c
	}
	f, err := swap.NewFactory(swap.Config{
		Networks: registry,
		Chains:   clients,
		Signer:   s.keyring,
		FeeRate:  swap.FeeRate(s.cfg.FeeRate),
	})
	if err != nil {
		return err
	}
	s.factory = f
	return nil
}

// loadTrade returns the stored trade and connects the networks of legs.
func (s *session) loadTrade(id string, legs ...trade.Party) (*trade.Trade, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(legs))
	for _, leg := range legs {
		names = append(names, t.Input(leg).Network)
	}
	if err := s.connect(names...); err != nil {
		return nil, err
	}
	return t, nil
}

// tradeKeyID returns the key id of the wallet trade key at index.
func tradeKeyID(index uint) string {
	return wallet.KeyID(wallet.TradeAccount, wallet.ExternalChain, uint32(index))
}

// tradeKey returns the wallet trade key at index.
func (s *session) tradeKey(index uint32) (*wallet.KeyPair, error) {
	return s.wallet.DeriveTradeKey(index)
}

// broadcast stores raw under kind, then sends tx on the network of leg.
func (s *session) broadcast(ctx context.Context, t *trade.Trade, leg trade.Party, kind store.TxKind, tx *transaction.Transaction) (string, error) {
	if err := s.store.PutTx(t.ID(), leg, kind, tx.Bytes()); err != nil {
		return "", err
	}
	name := t.Input(leg).Network
	chain, ok := s.chains[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", swap.ErrNoChainClient, name)
	}
	txid, err := chain.Broadcast(ctx, tx)
	if err != nil {
		return "", err
	}
	s.log.WithFields(log.Fields{
		"trade": t.ID(),
		"leg":   leg.String(),
		"kind":  string(kind),
		"txid":  txid.String(),
	}).Info("transaction broadcast")
	return txid.String(), nil
}

func parseParty(ctx *cli.Context, flag string) (trade.Party, error) {
	p, err := trade.ParseParty(ctx.String(flag))
	if err != nil {
		return 0, &invalidUsageError{ctx, ctx.Command.Name}
	}
	return p, nil
}

func parseTxHex(s string) (*transaction.Transaction, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("transaction hex: %w", err)
	}
	return transaction.NewTransactionFromBytes(raw)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[acct] %v\n", err)
	}
	os.Exit(1)
}
