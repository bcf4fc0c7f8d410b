package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
)

func GetSettingsCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "settings",
		Aliases: []string{"s"},
		Usage:   "Configure ledger settings and role assignments",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize the local configuration - creating or resetting settings and role lists",
				Action: InitSettings,
			},
			{
				Name:   "show",
				Usage:  "Display the current local configuration",
				Action: ShowSettings,
			},
		},
	}
}

func InitSettings(ctx context.Context, cmd *cli.Command) error {
	_, err := LoadConfig()
	if err == nil {
		result, _ := yesNo("A configuration already exists, do you REALLY want to replace it")
		if result != "y" {
			return nil
		}
		return DefineSettings()
	}
	if errors.Is(err, os.ErrNotExist) {
		result, _ := yesNo("No configuration found.  Create brand new configuration")
		if result != "y" {
			return nil
		}
		return DefineSettings()
	}
	return cli.Exit(err, 1)
}

func ShowSettings(ctx context.Context, cmd *cli.Command) error {
	cfg := App.localConfig
	s := cfg.Settings
	fmt.Println("Minimum deposit unit:", ledger.FormattedUnitAmount(s.UserDepositMinUnit))
	fmt.Println("Staking unit:", ledger.FormattedUnitAmount(s.ValidatorDepositAmount))
	fmt.Printf("Maintainer fee: %d bps (%.2f%%)\n", s.MaintainerFee, float64(s.MaintainerFee)/100)
	fmt.Println("Withdrawal credentials:", s.WithdrawalCredentials)
	fmt.Println("Staking duration (days):", s.StakingDuration)
	fmt.Println("Min staking duration (days):", s.MinStakingDuration)
	fmt.Println("Admins:", strings.Join(cfg.Admins, ", "))
	fmt.Println("Operators:", strings.Join(cfg.Operators, ", "))
	fmt.Println("Wallet managers:", strings.Join(cfg.WalletManagers, ", "))
	return nil
}

// DefineSettings builds a new local configuration by asking the operator for
// each value.
func DefineSettings() error {
	cfg := NewLocalConfig()

	minUnit, err := getAmount("Enter the minimum deposit unit (in staking units)", "1")
	if err != nil {
		return err
	}
	cfg.Settings.UserDepositMinUnit = minUnit

	stakingUnit, err := getAmount("Enter the staking unit a collector entity must reach (in staking units)", "32")
	if err != nil {
		return err
	}
	cfg.Settings.ValidatorDepositAmount = stakingUnit

	fee, err := getInt("Enter the maintainer fee (in basis points, ie: 20% = 2000)", 2000, 0, ledger.FeeDenominator)
	if err != nil {
		return err
	}
	cfg.Settings.MaintainerFee = uint64(fee)

	creds, err := (&promptui.Prompt{
		Label:   "Enter the default withdrawal credentials (hex)",
		Default: "",
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			_, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
			return err
		},
	}).Run()
	if err != nil {
		return err
	}
	cfg.Settings.WithdrawalCredentials = creds

	duration, err := getInt("Enter the staking duration (in days)", 730, 1, 3650)
	if err != nil {
		return err
	}
	cfg.Settings.StakingDuration = uint64(duration)

	minDuration, err := getInt("Enter the minimum staking duration (in days)", 180, 1, duration)
	if err != nil {
		return err
	}
	cfg.Settings.MinStakingDuration = uint64(minDuration)

	admin, err := getAccount("Enter the account address of the initial admin", "")
	if err != nil {
		return err
	}
	cfg.Admins = []string{admin}
	if !App.signer.HasAccount(admin) {
		misc.Warnf(App.logger, "no local signing key loaded for admin account %s", admin)
	}

	if y, _ := yesNo("Add an operator account (can register validators)"); y == "y" {
		operator, err := getAccount("Enter the account address of the operator", admin)
		if err != nil {
			return err
		}
		cfg.Operators = []string{operator}
	}
	if y, _ := yesNo("Add a wallet manager account (can confirm wallet sequences)"); y == "y" {
		manager, err := getAccount("Enter the account address of the wallet manager", admin)
		if err != nil {
			return err
		}
		cfg.WalletManagers = []string{manager}
	}

	return SaveConfig(cfg)
}

func getInt(prompt string, defVal int, minVal int, maxVal int) (int, error) {
	validate := func(input string) error {
		value, err := strconv.Atoi(input)
		if err != nil {
			return err
		}
		if value < minVal || value > maxVal {
			return fmt.Errorf("value must be between %d and %d", minVal, maxVal)
		}
		return nil
	}
	result, err := (&promptui.Prompt{
		Label:    prompt,
		Default:  strconv.Itoa(defVal),
		Validate: validate,
	}).Run()
	if err != nil {
		return 0, err
	}
	value, _ := strconv.Atoi(result)
	return value, nil
}

func getAmount(prompt string, defVal string) (*big.Int, error) {
	result, err := (&promptui.Prompt{
		Label:   prompt,
		Default: defVal,
		Validate: func(s string) error {
			val, err := ledger.ParseUnitAmount(s)
			if err != nil {
				return err
			}
			if val.Sign() <= 0 {
				return errors.New("amount must be positive")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return nil, err
	}
	return ledger.ParseUnitAmount(result)
}

func getAccount(prompt string, defVal string) (string, error) {
	return (&promptui.Prompt{
		Label:   prompt,
		Default: defVal,
		Validate: func(s string) error {
			_, err := ledger.DecodeAddress(s)
			return err
		},
	}).Run()
}

func yesNo(prompt string) (string, error) {
	return (&promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}).Run()
}
