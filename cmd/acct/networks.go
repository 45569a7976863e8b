package main

import (
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/acct-go/network"
)

var networks = cli.Command{
	Name:   "networks",
	Usage:  "list the supported networks",
	Action: networksAction,
}

func networksAction(ctx *cli.Context) error {
	list := make([]network.Params, 0, len(registry.Names()))
	for _, name := range registry.Names() {
		p, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		list = append(list, p)
	}
	return printJSON(list)
}
