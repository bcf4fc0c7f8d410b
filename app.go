package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/unitstake/poolmgr/internal/lib/access"
	"github.com/unitstake/poolmgr/internal/lib/keys"
	"github.com/unitstake/poolmgr/internal/lib/ledger"
	"github.com/unitstake/poolmgr/internal/lib/misc"
	"github.com/unitstake/poolmgr/internal/lib/wallet"
)

var logLevel = new(slog.LevelVar) // Info by default

func initApp() *PoolApp {
	log.SetFlags(0)
	var logger *slog.Logger
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Are we running on something where output is a tty - so we're being run as CLI vs as a daemon
		logger = slog.New(misc.NewMinimalHandler(os.Stdout,
			misc.MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: logLevel, AddSource: true}}))
	} else {
		// not on console - output as json, but change json key names to be more compatible w/ what google logging
		// expects
		opts := &slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.MessageKey {
					a.Key = "message"
				} else if a.Key == slog.LevelKey && len(groups) == 0 {
					a.Key = "severity"
				}
				return a
			},
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	slog.SetDefault(logger)
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}

	misc.LoadEnvSettings(logger)

	// We initialize our wrapper instance first, so we can call its methods in the 'Before' lambda func
	// in initialization of cli Command instance.
	// signer and ledger are set in the initClients method.
	appConfig := &PoolApp{logger: logger}

	appConfig.cliCmd = &cli.Command{
		Name:    "poolmgr",
		Usage:   "Configuration tool and background daemon for pooled staking settlement",
		Version: misc.GetVersionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			// This is further bootstrap of the 'app' but within context of 'cli' helper as it will
			// have access to flags and options (data dir for eg) already set.
			return appConfig.initClients(ctx, cmd)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("POOLMGR_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:        "datadir",
				Usage:       "Directory holding the ledger and wallet databases",
				Sources:     cli.EnvVars("POOLMGR_DATADIR"),
				Aliases:     []string{"d"},
				Destination: &appConfig.dataDir,
				OnlyOnce:    true,
			},
		},
		Commands: []*cli.Command{
			GetDaemonCmdOpts(),
			GetEntityCmdOpts(),
			GetValidatorCmdOpts(),
			GetWalletCmdOpts(),
			GetKeyCmdOpts(),
			GetSettingsCmdOpts(),
		},
	}
	return appConfig
}

type PoolApp struct {
	cliCmd      *cli.Command
	logger      *slog.Logger
	signer      keys.Signer
	localConfig *LocalConfig
	roles       *access.RoleTable
	store       *ledger.Store
	walletStore *wallet.Store
	ledger      *ledger.Ledger

	// just here for flag bootstrapping destination
	dataDir string
}

// initClients loads the local configuration, opens the ledger and wallet
// databases under the data directory, and wires the ledger with its
// collaborators.
func (ac *PoolApp) initClients(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("envfile"); envfile != "" {
		if err := misc.LoadEnvFile(ac.logger, envfile); err != nil {
			return err
		}
	}
	if ac.dataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("unable to determine data directory, set --datadir or POOLMGR_DATADIR: %w", err)
		}
		ac.dataDir = filepath.Join(dir, "poolmgr")
	}

	cfg, err := LoadConfig()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// first run - defaults until 'settings init' is used
		cfg = NewLocalConfig()
	}
	ac.localConfig = cfg

	// This will load keys from the environment - and handles all 'local' signing for the app
	ac.signer = keys.NewLocalKeyStore(ac.logger)

	admins, operators, walletManagers, err := cfg.RoleAddresses()
	if err != nil {
		return err
	}
	ac.roles = access.NewRoleTable(admins, operators, walletManagers)

	store, err := ledger.OpenStore(filepath.Join(ac.dataDir, "ledger.db"))
	if err != nil {
		return err
	}
	ac.store = store
	walletStore, err := wallet.OpenStore(filepath.Join(ac.dataDir, "wallets.db"))
	if err != nil {
		return err
	}
	ac.walletStore = walletStore

	ac.ledger = ledger.New(store, cfg.Settings, ac.roles, walletStore, &wallet.LogPayer{Logger: ac.logger}, ac.logger)
	return nil
}

func (ac *PoolApp) shutdown() {
	if ac.walletStore != nil {
		_ = ac.walletStore.Close()
	}
	if ac.store != nil {
		_ = ac.store.Close()
	}
}
