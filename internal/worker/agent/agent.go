// Package agent implements the worker's main loop: register once, then run
// a heartbeat-ping task and a pull/convert/push task concurrently until
// either fails or the context is canceled, per spec.md section 4.5.
package agent

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
	"github.com/thesamsai/transcode-dispatch/internal/worker/client"
	"github.com/thesamsai/transcode-dispatch/internal/worker/config"
	"github.com/thesamsai/transcode-dispatch/internal/worker/pipeline"
)

type Agent struct {
	cfg    config.Config
	client *client.Client
	pipe   *pipeline.Pipeline
	log    *logger.Logger

	serverHost string
}

func New(cfg config.Config, c *client.Client, log *logger.Logger) (*Agent, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	return &Agent{
		cfg:        cfg,
		client:     c,
		pipe:       &pipeline.Pipeline{JobsDir: cfg.JobsDir},
		log:        log,
		serverHost: u.Hostname(),
	}, nil
}

// Run registers with the coordinator, then runs the ping task and the pull
// loop under one errgroup so that either task's fatal error tears down the
// other via context cancellation.
func (a *Agent) Run(ctx context.Context) error {
	id, err := a.client.Register(ctx)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	a.log.Info("registered with coordinator", "uuid", id.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.pingLoop(gctx, id) })
	g.Go(func() error { return a.pullLoop(gctx, id) })
	return g.Wait()
}

func (a *Agent) pingLoop(ctx context.Context, id uuid.UUID) error {
	ticker := time.NewTicker(a.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.client.Ping(ctx, id); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			a.log.Debug("ping", "uuid", id.String())
		}
	}
}

func (a *Agent) pullLoop(ctx context.Context, id uuid.UUID) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		path, err := a.client.Pull(ctx, id)
		if err != nil {
			return fmt.Errorf("pull: %w", err)
		}
		if path == "" {
			if err := sleepCtx(ctx, a.cfg.PingInterval); err != nil {
				return nil
			}
			continue
		}

		if err := a.handleJob(ctx, id, path); err != nil {
			return err
		}
	}
}

func (a *Agent) handleJob(ctx context.Context, id uuid.UUID, path string) error {
	info, err := a.client.Info(ctx)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	result := a.pipe.Execute(ctx, a.serverHost, path, info)
	if !result.Succeeded() {
		a.log.Warn("job failed", "uuid", id.String(), "path", path)
		report := client.FailureReport{
			UUID:         id.String(),
			TimestampUTC: time.Now().UTC().Format(time.RFC3339),
			FfmepgConversion: client.CommandError{
				ExitCode: result.Convert.ExitCode,
				Stdout:   result.Convert.Stdout,
				Stderr:   result.Convert.Stderr,
			},
			RsyncFrom: client.CommandError{
				ExitCode: result.RsyncFrom.ExitCode,
				Stdout:   result.RsyncFrom.Stdout,
				Stderr:   result.RsyncFrom.Stderr,
			},
			RsyncTo: client.CommandError{
				ExitCode: result.RsyncTo.ExitCode,
				Stdout:   result.RsyncTo.Stdout,
				Stderr:   result.RsyncTo.Stderr,
			},
		}
		if err := a.client.Failure(ctx, report); err != nil {
			a.log.Error("failed to report failure", "error", err)
		}
		return fmt.Errorf("job %s failed, worker exiting without retry", path)
	}

	resp, err := a.client.Push(ctx, id)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	a.log.Info("pushed job", "uuid", id.String(), "path", path, "response", resp)
	result.Cleanup()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
