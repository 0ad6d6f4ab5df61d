// Command worker runs a transcoding worker agent: it registers with a
// coordinator, then loops pulling jobs, converting them, and reporting
// results until a job fails or it is signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
	"github.com/thesamsai/transcode-dispatch/internal/platform/shutdown"
	"github.com/thesamsai/transcode-dispatch/internal/worker/agent"
	"github.com/thesamsai/transcode-dispatch/internal/worker/client"
	"github.com/thesamsai/transcode-dispatch/internal/worker/config"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "worker <coordinator-url>",
		Short: "Run a transcoding worker agent against a coordinator",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional path to a YAML worker config file")
	return cmd
}

func run(serverURL, configPath string) error {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(serverURL, configPath)
	if err != nil {
		return fmt.Errorf("load worker config: %w", err)
	}

	c, err := client.New(client.Options{BaseURL: cfg.ServerURL})
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}

	if err := os.MkdirAll(cfg.JobsDir, 0o755); err != nil {
		return fmt.Errorf("create jobs dir: %w", err)
	}

	a, err := agent.New(cfg, c, log)
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	log.Info("worker starting", "server_url", cfg.ServerURL, "jobs_dir", cfg.JobsDir, "ping_interval", cfg.PingInterval)

	if err := a.Run(ctx); err != nil {
		log.Error("worker exited", "error", err)
		return err
	}
	return nil
}
