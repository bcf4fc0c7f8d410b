package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/unitstake/poolmgr/internal/lib/misc"
)

func GetDaemonCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run the application as a daemon",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    "port",
				Usage:   "Port to listen on for metrics/health endpoints",
				Sources: cli.EnvVars("POOLMGR_PORT"),
				Value:   8080,
			},
			&cli.StringFlag{
				Name:    "signaldir",
				Usage:   "Directory watched for wallet confirmation signal files",
				Sources: cli.EnvVars("POOLMGR_SIGNALDIR"),
			},
		},
		Action: runAsDaemon,
	}
}

func runAsDaemon(ctx context.Context, cmd *cli.Command) error {
	var wg sync.WaitGroup

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)

	// Setup interrupt handler so SIGINT and SIGTERM cause the services to
	// stop gracefully.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(context.Background())

	signalDir := cmd.String("signaldir")
	if signalDir == "" {
		signalDir = filepath.Join(App.dataDir, "wallet-signals")
	}
	newDaemon(signalDir).start(ctx, &wg, int(cmd.Uint("port")))

	misc.Infof(App.logger, "exiting (%v)", <-errc) // wait for termination signal

	// Send cancellation signal to the goroutines.
	cancel()
	misc.Infof(App.logger, "waiting on background tasks..")
	wg.Wait()

	misc.Infof(App.logger, "exited")
	return nil
}
