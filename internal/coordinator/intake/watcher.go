// Package intake seeds the coordinator's pending queue from an existing
// directory and then keeps appending newly created files observed via
// OS file-change notifications.
package intake

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/thesamsai/transcode-dispatch/internal/coordinator/registry"
	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
)

// Pusher is the one registry operation the watcher is allowed to call. It
// takes only the pending lock, never checkIns or assigned (spec.md section
// 4.1 and 5).
type Pusher interface {
	PushPending(path registry.JobPath)
}

// Watcher abstracts fsnotify so tests can drive the live-event path without
// touching the real filesystem notification subsystem.
type Watcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsNotifyWatcher struct {
	*fsnotify.Watcher
}

func (f *fsNotifyWatcher) Events() <-chan fsnotify.Event { return f.Watcher.Events }
func (f *fsNotifyWatcher) Errors() <-chan error           { return f.Watcher.Errors }

// NewFSNotifyWatcher constructs the production Watcher implementation.
func NewFSNotifyWatcher() (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &fsNotifyWatcher{Watcher: w}, nil
}

// Run performs the initial enumeration of dir (creating it if absent),
// pushes each regular file found onto pool in directory-iteration order,
// then watches dir for create events until watcher is closed or an error
// forces it to stop. It is meant to be run on its own goroutine and does
// not return on success; it returns only when the watcher's channels are
// closed or produce an unrecoverable error, which callers should treat as
// fatal per spec.md section 4.1 ("Failure semantics").
func Run(dir string, pool Pusher, watcher Watcher, log *logger.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create intake directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read intake directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		pool.PushPending(filepath.Join(dir, e.Name()))
	}

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch intake directory: %w", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return fmt.Errorf("intake watcher event stream closed")
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			// REDESIGN FLAG (spec.md section 9.3): unlike the initial
			// enumeration, the original source didn't check is_file()
			// here, which meant directories created inside the intake
			// directory were enqueued as if they were jobs. Check it.
			info, err := os.Stat(event.Name)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			pool.PushPending(event.Name)
			log.Debug("intake: enqueued path", "path", event.Name)
		case err, ok := <-watcher.Errors():
			if !ok {
				return fmt.Errorf("intake watcher error stream closed")
			}
			return fmt.Errorf("intake watcher error: %w", err)
		}
	}
}
