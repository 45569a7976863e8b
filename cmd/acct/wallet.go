package main

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/wallet"
)

var newmnemonic = cli.Command{
	Name:  "newmnemonic",
	Usage: "generate a BIP39 wallet mnemonic",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "words",
			Usage: "number of words, 12 or 24",
			Value: 12,
		},
	},
	Action: newMnemonicAction,
}

var pubkey = cli.Command{
	Name:  "pubkey",
	Usage: "print a trade public key to hand to a counterparty",
	Flags: []cli.Flag{
		&cli.UintFlag{
			Name:  "index",
			Usage: "trade key index",
		},
	},
	Action: pubKeyAction,
}

var address = cli.Command{
	Name:   "address",
	Usage:  "print the funding address swaps are paid from",
	Action: addressAction,
}

func newMnemonicAction(ctx *cli.Context) error {
	var bits int
	switch ctx.Int("words") {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return &invalidUsageError{ctx, ctx.Command.Name}
	}
	mnemonic, err := wallet.GenerateMnemonic(bits)
	if err != nil {
		return err
	}
	fmt.Println(mnemonic)
	return nil
}

func pubKeyAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	w, _, err := openWallet(ctx, cfg)
	if err != nil {
		return err
	}
	kp, err := w.DeriveTradeKey(uint32(ctx.Uint("index")))
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"key_id":     kp.Path,
		"public_key": hex.EncodeToString(kp.PublicKey.Compressed()),
	})
}

func addressAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	w, _, err := openWallet(ctx, cfg)
	if err != nil {
		return err
	}
	kp, err := w.DeriveFundingKey(0)
	if err != nil {
		return err
	}
	addr, err := w.Address(kp)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"network": cfg.Network,
		"key_id":  kp.Path,
		"address": addr,
	})
}
