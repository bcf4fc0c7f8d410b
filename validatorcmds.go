package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
)

func GetValidatorCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "validator",
		Aliases: []string{"v"},
		Usage:   "Validator registration and settlement commands",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List all registered validators",
				Action:  ValidatorList,
			},
			{
				Name:  "info",
				Usage: "Display one validator with its terms and accumulated debt",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Validator id", Required: true},
				},
				Action: ValidatorInfo,
			},
			{
				Name:  "register",
				Usage: "Register a validator backed by a finalized collector entity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "entity", Usage: "Finalized entity id providing the staking unit", Required: true},
					&cli.StringFlag{Name: "pubkey", Usage: "Validator public key (hex)", Required: true},
					&cli.StringFlag{Name: "credentials", Usage: "Withdrawal credentials (hex, defaults from settings)"},
					&cli.UintFlag{Name: "fee", Usage: "Maintainer fee in basis points (defaults from settings)"},
					&cli.UintFlag{Name: "duration", Usage: "Staking duration in days (defaults from settings)"},
					&cli.UintFlag{Name: "minduration", Usage: "Minimum staking duration in days (defaults from settings)"},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Operator account to act as - you must have its signing key",
						Required: true,
					},
				},
				Action: ValidatorRegister,
			},
			{
				Name:  "transfer",
				Usage: "Transfer a validator to a new finalized entity, settling accrued reward as debt",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Validator id", Required: true},
					&cli.StringFlag{Name: "entity", Usage: "New finalized entity id taking over the validator", Required: true},
					&cli.StringFlag{Name: "reward", Usage: "Reward accrued since the previous settlement, in staking units", Required: true},
					&cli.UintFlag{Name: "fee", Usage: "New maintainer fee in basis points (0 keeps current)"},
					&cli.UintFlag{Name: "duration", Usage: "New staking duration in days (0 keeps current)"},
					&cli.UintFlag{Name: "minduration", Usage: "New minimum staking duration in days (0 keeps current)"},
					&cli.StringFlag{
						Name:     "account",
						Usage:    "Collector account of the new entity - you must have its signing key",
						Required: true,
					},
				},
				Action: ValidatorTransfer,
			},
			{
				Name:   "pause",
				Usage:  "Pause all validator transfers (admin only)",
				Flags:  pauseFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error { return setPaused(cmd, true) },
			},
			{
				Name:   "resume",
				Usage:  "Resume validator transfers (admin only)",
				Flags:  pauseFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error { return setPaused(cmd, false) },
			},
		},
	}
}

func pauseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "account",
			Usage:    "Admin account to act as - you must have its signing key",
			Required: true,
		},
	}
}

func ValidatorList(ctx context.Context, cmd *cli.Command) error {
	validators, err := App.ledger.Validators()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEntity\tFee (bps)\tTransfers\tDeposit")
	for _, v := range validators {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			v.ID.Short(), v.CurrentEntityID.Short(), v.Terms.MaintainerFee, v.Transfers,
			ledger.FormattedUnitAmount(v.Terms.DepositAmount))
	}
	return tw.Flush()
}

func ValidatorInfo(ctx context.Context, cmd *cli.Command) error {
	validatorID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	v, err := App.ledger.GetValidator(validatorID)
	if err != nil {
		return err
	}
	if v == nil {
		return ledger.ErrUnknownValidator
	}
	fmt.Println("ID:", v.ID)
	fmt.Println("Public key:", hex.EncodeToString(v.PubKey))
	fmt.Println("Current entity:", v.CurrentEntityID)
	fmt.Println("Transfers:", v.Transfers)
	fmt.Println("Deposit:", ledger.FormattedUnitAmount(v.Terms.DepositAmount))
	fmt.Printf("Maintainer fee: %d bps\n", v.Terms.MaintainerFee)
	fmt.Println("Staking duration (days):", v.Terms.StakingDuration)
	fmt.Println("Min staking duration (days):", v.Terms.MinStakingDuration)
	fmt.Println("Withdrawal credentials:", hex.EncodeToString(v.Terms.WithdrawalCredentials))

	debt, err := App.ledger.DebtOf(validatorID)
	if err != nil {
		return err
	}
	fmt.Println("User debt:", ledger.FormattedUnitAmount(debt.UserDebt))
	fmt.Println("Maintainer debt:", ledger.FormattedUnitAmount(debt.MaintainerDebt))

	seq, err := App.walletStore.ConfirmedSeq(validatorID)
	if err != nil {
		return err
	}
	fmt.Println("Wallet confirmed through transfer:", seq)
	return nil
}

func ValidatorRegister(ctx context.Context, cmd *cli.Command) error {
	actingParty, err := signerAddress(cmd.String("account"))
	if err != nil {
		return err
	}
	entityID, err := ledger.DecodeID(cmd.String("entity"))
	if err != nil {
		return err
	}
	pubKey, err := hex.DecodeString(strings.TrimPrefix(cmd.String("pubkey"), "0x"))
	if err != nil {
		return fmt.Errorf("invalid public key: %w", err)
	}
	params := ledger.RegisterParams{
		PubKey:             pubKey,
		MaintainerFee:      cmd.Uint("fee"),
		StakingDuration:    cmd.Uint("duration"),
		MinStakingDuration: cmd.Uint("minduration"),
	}
	if creds := cmd.String("credentials"); creds != "" {
		params.WithdrawalCredentials, err = hex.DecodeString(strings.TrimPrefix(creds, "0x"))
		if err != nil {
			return fmt.Errorf("invalid withdrawal credentials: %w", err)
		}
	}
	validatorID, err := App.ledger.Register(actingParty, entityID, params)
	if err != nil {
		return err
	}
	fmt.Println("Validator:", validatorID)
	return nil
}

func ValidatorTransfer(ctx context.Context, cmd *cli.Command) error {
	actingParty, err := signerAddress(cmd.String("account"))
	if err != nil {
		return err
	}
	validatorID, err := ledger.DecodeID(cmd.String("id"))
	if err != nil {
		return err
	}
	entityID, err := ledger.DecodeID(cmd.String("entity"))
	if err != nil {
		return err
	}
	reward, err := ledger.ParseUnitAmount(cmd.String("reward"))
	if err != nil {
		return err
	}
	return App.ledger.Transfer(actingParty, validatorID, entityID, ledger.TransferParams{
		AccruedReward:         reward,
		NewMaintainerFee:      cmd.Uint("fee"),
		NewStakingDuration:    cmd.Uint("duration"),
		NewMinStakingDuration: cmd.Uint("minduration"),
	})
}

func setPaused(cmd *cli.Command, paused bool) error {
	actingParty, err := signerAddress(cmd.String("account"))
	if err != nil {
		return err
	}
	if err := App.ledger.SetTransfersPaused(actingParty, paused); err != nil {
		return err
	}
	misc.Infof(App.logger, "validator transfers paused:%v", paused)
	return nil
}

// signerAddress validates we hold the signing key for account and returns its
// decoded address.
func signerAddress(account string) (ledger.Address, error) {
	if !App.signer.HasAccount(account) {
		return ledger.ZeroAddress, fmt.Errorf("account:%s isn't an account you have keys to!", account)
	}
	return ledger.DecodeAddress(account)
}
