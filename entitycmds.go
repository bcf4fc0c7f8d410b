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

func GetEntityCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "entity",
		Aliases: []string{"e"},
		Usage:   "Collector entity and deposit commands",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List all collector entities",
				Action:  EntityList,
			},
			{
				Name:  "show",
				Usage: "Display one entity with its contributions and captured rewards",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Entity id to display",
						Required: true,
					},
				},
				Action: EntityShow,
			},
			{
				Name:  "deposit",
				Usage: "Add a deposit toward a collector's staking unit",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Pin the deposit to a specific entity id instead of the collector's open slot",
					},
					&cli.StringFlag{
						Name:     "collector",
						Usage:    "Collector address pooling this deposit",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Collector kind (pool, individual, group)",
						Value: "pool",
					},
					&cli.StringFlag{
						Name:     "sender",
						Usage:    "Account the deposit is debited from",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "recipient",
						Usage: "Account entitled to withdraw (defaults to sender)",
					},
					&cli.StringFlag{
						Name:     "amount",
						Usage:    "Deposit amount in staking units, ie: 1 or 0.5",
						Required: true,
					},
				},
				Action: EntityDeposit,
			},
			{
				Name:  "cancel",
				Usage: "Cancel part of a deposit on an unfinalized entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Entity id", Required: true},
					&cli.StringFlag{Name: "sender", Usage: "Account the deposit was debited from", Required: true},
					&cli.StringFlag{Name: "recipient", Usage: "Withdrawal account of the position (defaults to sender)"},
					&cli.StringFlag{Name: "amount", Usage: "Amount to cancel in staking units", Required: true},
				},
				Action: EntityCancel,
			},
			{
				Name:  "finalize",
				Usage: "Finalize an entity that has collected exactly the staking unit",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Entity id", Required: true},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Collector account to act as - you must have its signing key",
						Required: true,
					},
				},
				Action: EntityFinalize,
			},
			{
				Name:  "withdraw",
				Usage: "Withdraw a position's principal and resolvable reward",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Entity id", Required: true},
					&cli.StringFlag{Name: "sender", Usage: "Account the deposit was debited from", Required: true},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Withdrawal account of the position - you must have its signing key",
						Required: true,
					},
				},
				Action: EntityWithdraw,
			},
			{
				Name:  "claimable",
				Usage: "Show the currently resolvable, unpaid reward for a position",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Entity id", Required: true},
					&cli.StringFlag{Name: "sender", Usage: "Account the deposit was debited from", Required: true},
					&cli.StringFlag{Name: "recipient", Usage: "Withdrawal account of the position (defaults to sender)"},
				},
				Action: EntityClaimable,
			},
		},
	}
}

func EntityList(ctx context.Context, cmd *cli.Command) error {
	entities, err := App.ledger.Entities()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCollector\tKind\tSeq\tCollected\tFinalized\tValidator")
	for _, e := range entities {
		validator := ""
		if e.ValidatorID != ledger.ZeroID {
			validator = e.ValidatorID.Short()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%v\t%s\n",
			e.ID.Short(), e.Collector, e.Kind, e.Seq,
			ledger.FormattedUnitAmount(e.Collected), e.Finalized, validator)
	}
	return tw.Flush()
}

func EntityShow(ctx context.Context, cmd *cli.Command) error {
	entityID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	entity, err := App.ledger.GetEntity(entityID)
	if err != nil {
		return err
	}
	if entity == nil {
		return ledger.ErrUnknownEntity
	}
	fmt.Println("ID:", entity.ID)
	fmt.Println("Collector:", entity.Collector)
	fmt.Println("Kind:", entity.Kind)
	fmt.Println("Sequence:", entity.Seq)
	fmt.Println("Collected:", ledger.FormattedUnitAmount(entity.Collected))
	fmt.Println("Finalized:", entity.Finalized)
	if entity.ValidatorID != ledger.ZeroID {
		fmt.Println("Validator:", entity.ValidatorID)
	}

	contribs, err := App.ledger.Contributions(entityID)
	if err != nil {
		return err
	}
	if len(contribs) > 0 {
		fmt.Println()
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Sender\tRecipient\tPrincipal\tDeposited\tReward paid")
		for _, c := range contribs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				c.Sender, c.Recipient,
				ledger.FormattedUnitAmount(c.Amount),
				ledger.FormattedUnitAmount(c.Deposited),
				ledger.FormattedUnitAmount(c.RewardPaid))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	rewards, err := App.ledger.RewardsOf(entityID)
	if err != nil {
		return err
	}
	for _, r := range rewards {
		fmt.Printf("Reward from validator %s (transfer %d): %s\n",
			r.ValidatorID.Short(), r.TransferSeq, ledger.FormattedUnitAmount(r.Amount))
	}
	return nil
}

func EntityDeposit(ctx context.Context, cmd *cli.Command) error {
	sender, err := ledger.DecodeAddress(cmd.String("sender"))
	if err != nil {
		return err
	}
	recipient := sender
	if r := cmd.String("recipient"); r != "" {
		if recipient, err = ledger.DecodeAddress(r); err != nil {
			return err
		}
	}
	amount, err := ledger.ParseUnitAmount(cmd.String("amount"))
	if err != nil {
		return err
	}

	if idStr := cmd.String("id"); idStr != "" {
		entityID, err := ledger.DecodeID(idStr)
		if err != nil {
			return err
		}
		if err := App.ledger.DepositTo(entityID, sender, recipient, amount); err != nil {
			return err
		}
		misc.Infof(App.logger, "deposited %s to entity %s", ledger.FormattedUnitAmount(amount), entityID.Short())
		return nil
	}

	collector, err := ledger.DecodeAddress(cmd.String("collector"))
	if err != nil {
		return err
	}
	kind, err := ledger.KindFromString(cmd.String("kind"))
	if err != nil {
		return err
	}
	entityID, err := App.ledger.Deposit(collector, kind, sender, recipient, amount)
	if err != nil {
		return err
	}
	fmt.Println("Entity:", entityID)
	return nil
}

func EntityCancel(ctx context.Context, cmd *cli.Command) error {
	entityID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	sender, err := ledger.DecodeAddress(cmd.String("sender"))
	if err != nil {
		return err
	}
	recipient := sender
	if r := cmd.String("recipient"); r != "" {
		if recipient, err = ledger.DecodeAddress(r); err != nil {
			return err
		}
	}
	amount, err := ledger.ParseUnitAmount(cmd.String("amount"))
	if err != nil {
		return err
	}
	return App.ledger.Cancel(entityID, sender, recipient, amount)
}

func EntityFinalize(ctx context.Context, cmd *cli.Command) error {
	entityID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	account := cmd.String("account")
	if !App.signer.HasAccount(account) {
		return fmt.Errorf("account:%s isn't an account you have keys to!", account)
	}
	actingParty, err := ledger.DecodeAddress(account)
	if err != nil {
		return err
	}
	return App.ledger.Finalize(entityID, actingParty)
}

func EntityWithdraw(ctx context.Context, cmd *cli.Command) error {
	entityID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	sender, err := ledger.DecodeAddress(cmd.String("sender"))
	if err != nil {
		return err
	}
	account := cmd.String("account")
	if !App.signer.HasAccount(account) {
		return fmt.Errorf("account:%s isn't an account you have keys to!", account)
	}
	withdrawer, err := ledger.DecodeAddress(account)
	if err != nil {
		return err
	}
	paid, err := App.ledger.Withdraw(ctx, entityID, sender, withdrawer)
	if err != nil {
		return err
	}
	fmt.Println("Withdrawn:", ledger.FormattedUnitAmount(paid))
	return nil
}

func EntityClaimable(ctx context.Context, cmd *cli.Command) error {
	entityID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	sender, err := ledger.DecodeAddress(cmd.String("sender"))
	if err != nil {
		return err
	}
	recipient := sender
	if r := cmd.String("recipient"); r != "" {
		if recipient, err = ledger.DecodeAddress(r); err != nil {
			return err
		}
	}
	reward, err := App.ledger.ClaimableReward(entityID, sender, recipient)
	if err != nil {
		return err
	}
	fmt.Println("Claimable reward:", ledger.FormattedUnitAmount(reward))
	return nil
}
