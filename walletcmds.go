package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
)

func GetWalletCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "wallet",
		Aliases: []string{"w"},
		Usage:   "Wallet lifecycle confirmation commands",
		Commands: []*cli.Command{
			{
				Name:  "confirm",
				Usage: "Record that funds are confirmed through a validator's transfer ordinal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Validator id", Required: true},
					&cli.UintFlag{Name: "seq", Usage: "Transfer ordinal confirmed through", Required: true},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Wallet manager account to act as - you must have its signing key",
						Required: true,
					},
				},
				Action: WalletConfirm,
			},
			{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Show confirmation status for every validator",
				Action:  WalletStatus,
			},
		},
	}
}

func WalletConfirm(ctx context.Context, cmd *cli.Command) error {
	actingParty, err := signerAddress(cmd.String("account"))
	if err != nil {
		return err
	}
	if !App.roles.Authorize(actingParty, ledger.CapWalletManager) {
		return ledger.ErrPermissionDenied
	}
	validatorID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	seq := cmd.Uint("seq")
	if err := App.walletStore.Confirm(validatorID, seq); err != nil {
		return err
	}
	misc.Infof(App.logger, "wallet confirmed validator %s through transfer %d", validatorID.Short(), seq)
	return nil
}

func WalletStatus(ctx context.Context, cmd *cli.Command) error {
	validators, err := App.ledger.Validators()
	if err != nil {
		return err
	}
	confirmed, err := App.walletStore.All()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Validator\tTransfers\tConfirmed")
	for _, v := range validators {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", v.ID.Short(), v.Transfers, confirmed[v.ID])
	}
	return tw.Flush()
}
