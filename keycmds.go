package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/unitstake/poolmgr/internal/lib/keys"
)

func GetKeyCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Local signing key commands",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List addresses of locally loaded signing keys",
				Action:  KeysList,
			},
		},
	}
}

func KeysList(ctx context.Context, command *cli.Command) error {
	store, ok := App.signer.(*keys.LocalKeyStore)
	if !ok {
		return fmt.Errorf("signer does not expose local key listing")
	}
	for _, addr := range store.Addresses() {
		fmt.Println(addr)
	}
	return nil
}
