// Package shutdown wires OS termination signals into a cancelable context
// so long-running binaries (the coordinator's HTTP listener, the worker's
// poll loop) can drain instead of dying mid-request.
package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context that is canceled on SIGINT or SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
