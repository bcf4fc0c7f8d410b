package main

import (
	"context"
	"log/slog"
	"os"
)

// App is the process-wide application instance, set up in initApp and shared
// by the command handlers.
var App *PoolApp

func main() {
	App = initApp()

	err := App.cliCmd.Run(context.Background(), os.Args)
	App.shutdown()
	if err != nil {
		slog.Error("Error", "msg", err)
		os.Exit(1)
	}
}
