package main

import (
	"encoding/hex"

	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/htlc"
	"github.com/bitfsorg/acct-go/trade"
)

var newsecret = cli.Command{
	Name:   "newsecret",
	Usage:  "generate a random swap secret and its hash",
	Action: newSecretAction,
}

var extractsecret = cli.Command{
	Name:  "extractsecret",
	Usage: "recover the secret revealed by a claim transaction",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "tx",
			Usage:    "the claim transaction in hex",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "hash",
			Usage:    "the secret hash of the trade in hex",
			Required: true,
		},
	},
	Action: extractSecretAction,
}

func newSecretAction(ctx *cli.Context) error {
	secret, h, err := trade.NewSecret()
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"secret":      hex.EncodeToString(secret),
		"secret_hash": h.String(),
	})
}

func extractSecretAction(ctx *cli.Context) error {
	h, err := trade.ParseSecretHash(ctx.String("hash"))
	if err != nil {
		return err
	}
	tx, err := parseTxHex(ctx.String("tx"))
	if err != nil {
		return err
	}
	secret, err := htlc.ExtractSecret(tx, h)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"secret": hex.EncodeToString(secret)})
}
