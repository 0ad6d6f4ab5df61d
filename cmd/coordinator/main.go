// Command coordinator runs the media-conversion dispatcher's central
// server: it watches an intake directory and hands discovered files to
// registering worker agents over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thesamsai/transcode-dispatch/internal/coordinator/app"
	"github.com/thesamsai/transcode-dispatch/internal/platform/shutdown"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize coordinator: %v\n", err)
		os.Exit(1)
	}
	defer a.Log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Log.Info("coordinator starting", "addr", a.Config.HTTPAddr, "intake_dir", a.Config.IntakeDir, "staleness", a.Config.Staleness)

	if err := a.Run(ctx); err != nil {
		fmt.Printf("coordinator exited: %v\n", err)
		os.Exit(1)
	}
}
