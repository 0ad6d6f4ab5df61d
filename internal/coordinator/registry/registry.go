// Package registry implements the coordinator's job lifecycle engine: the
// in-memory state machine tracking registered workers, pending and assigned
// file paths, and the reclamation of work from silent workers.
//
// Operational story (read before editing):
//  1. register/ping/pullFor/completeFor/failFor are the only ways to mutate
//     state. Every operation that touches more than one of the three maps
//     acquires them in the fixed order checkIns -> assigned -> pending.
//     Violating that order is a correctness bug, not a style nit.
//  2. pullFor is the only place reclamation (reaper.go) runs, because it is
//     the only place all three locks are already held in order and the only
//     moment reclamation is actually useful (someone is asking for work).
//  3. snapshotPending backs the "/" index endpoint; Stats backs "/stats".
package registry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobPath is an absolute filesystem path naming a file in the intake
// directory. Paths are opaque to the engine; equality is byte-wise (plain
// string comparison), per spec.
type JobPath = string

// CompleteResult is the outcome of a push/completeFor call.
type CompleteResult int

const (
	// Ok means the expected output file was present; the job is done.
	Ok CompleteResult = iota
	// Missing means the calling worker had no outstanding assignment.
	Missing
	// NotYet means the worker has an assignment but the output isn't on
	// disk yet; the path was re-enqueued for another worker to pick up.
	NotYet
)

// CompletionConfig carries the environment-derived settings completeFor
// needs to locate the expected output file. The caller (the HTTP handler)
// reads these lazily from the environment on every /push, per spec.
type CompletionConfig struct {
	// FileExtension is the output extension, without a leading dot.
	FileExtension string
	// CompletedDir is the directory finished outputs land in.
	CompletedDir string
}

// Registry holds the three coordination maps described in spec.md section 3.
// The mutex for each is named after the map it guards; the comment next to
// each field records its position in the mandatory lock order.
type Registry struct {
	checkInsMu sync.Mutex // 1st in lock order
	checkIns   map[uuid.UUID]time.Time

	assignedMu sync.Mutex // 2nd in lock order
	assigned   map[uuid.UUID]JobPath

	pendingMu sync.Mutex // 3rd in lock order
	pending   []JobPath

	staleness time.Duration

	now func() time.Time // injectable for reclaim tests
}

// New constructs an empty Registry. staleness is the reclaim bound (the
// spec's default is 60s).
func New(staleness time.Duration) *Registry {
	return &Registry{
		checkIns:  make(map[uuid.UUID]time.Time),
		assigned:  make(map[uuid.UUID]JobPath),
		pending:   nil,
		staleness: staleness,
		now:       time.Now,
	}
}

// Register mints a fresh worker id and marks it alive as of now.
func (r *Registry) Register() uuid.UUID {
	id := uuid.New()
	r.checkInsMu.Lock()
	r.checkIns[id] = r.now()
	r.checkInsMu.Unlock()
	return id
}

// Ping refreshes the heartbeat of a known worker. Unknown ids are a silent
// no-op — the ping endpoint does not authenticate (spec.md section 4.2).
func (r *Registry) Ping(id uuid.UUID) {
	r.checkInsMu.Lock()
	defer r.checkInsMu.Unlock()
	if _, ok := r.checkIns[id]; ok {
		r.checkIns[id] = r.now()
	}
}

// PullFor returns the next job path for a known worker, preferring a
// reclaimed stale assignment over fresh pending work (invariant: reclaim
// precedence). Returns ("", false) if the worker is unknown or there is no
// work of either kind.
func (r *Registry) PullFor(id uuid.UUID) (JobPath, bool) {
	r.checkInsMu.Lock()
	defer r.checkInsMu.Unlock()
	if _, known := r.checkIns[id]; !known {
		return "", false
	}

	r.assignedMu.Lock()
	defer r.assignedMu.Unlock()

	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	if path, ok := r.reclaimLocked(); ok {
		r.checkIns[id] = r.now()
		r.assigned[id] = path
		return path, true
	}

	if len(r.pending) == 0 {
		r.checkIns[id] = r.now()
		return "", false
	}
	path := r.pending[0]
	r.pending = r.pending[1:]
	r.checkIns[id] = r.now()
	r.assigned[id] = path
	return path, true
}

// CompleteFor handles a /push: it checks for the expected output file and
// either removes the assignment (and the input file) or re-enqueues the
// path for another worker.
func (r *Registry) CompleteFor(id uuid.UUID, cfg CompletionConfig) CompleteResult {
	r.assignedMu.Lock()
	defer r.assignedMu.Unlock()
	path, ok := r.assigned[id]
	if !ok {
		return Missing
	}

	outputPath := expectedOutputPath(path, cfg)
	if _, err := os.Stat(outputPath); err == nil {
		delete(r.assigned, id)
		_ = os.Remove(path)
		return Ok
	}

	// No retry budget: a worker that keeps pushing without producing output
	// can cycle the same path through pending indefinitely.
	r.pendingMu.Lock()
	r.pending = append(r.pending, path)
	r.pendingMu.Unlock()
	delete(r.assigned, id)

	return NotYet
}

// expectedOutputPath replaces path's extension with cfg.FileExtension and
// joins the result onto cfg.CompletedDir.
func expectedOutputPath(path JobPath, cfg CompletionConfig) string {
	ext := strings.TrimPrefix(cfg.FileExtension, ".")
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(cfg.CompletedDir, stem+"."+ext)
}

// FailFor removes a worker reported as failed and recycles its outstanding
// assignment, if any, back to the tail of pending. The caller (the
// /failure handler) is responsible for logging the failure report itself;
// FailFor only mutates state. Returns whether the worker was known.
func (r *Registry) FailFor(id uuid.UUID) bool {
	r.checkInsMu.Lock()
	_, known := r.checkIns[id]
	if known {
		delete(r.checkIns, id)
	}
	r.checkInsMu.Unlock()
	if !known {
		return false
	}

	r.assignedMu.Lock()
	path, hadAssignment := r.assigned[id]
	if hadAssignment {
		delete(r.assigned, id)
	}
	r.assignedMu.Unlock()

	if hadAssignment {
		r.pendingMu.Lock()
		r.pending = append(r.pending, path)
		r.pendingMu.Unlock()
	}
	return true
}

// SnapshotPending returns a copy of the pending queue, in FIFO order.
func (r *Registry) SnapshotPending() []JobPath {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	out := make([]JobPath, len(r.pending))
	copy(out, r.pending)
	return out
}

// Stats is the ambient /stats payload; it is a read-only view, not a new
// coordination primitive.
type Stats struct {
	PendingCount     int `json:"pending_count"`
	AssignedCount    int `json:"assigned_count"`
	KnownWorkerCount int `json:"known_worker_count"`
}

func (r *Registry) Stats() Stats {
	r.checkInsMu.Lock()
	knownWorkers := len(r.checkIns)
	r.checkInsMu.Unlock()

	r.assignedMu.Lock()
	assignedCount := len(r.assigned)
	r.assignedMu.Unlock()

	r.pendingMu.Lock()
	pendingCount := len(r.pending)
	r.pendingMu.Unlock()

	return Stats{
		PendingCount:     pendingCount,
		AssignedCount:    assignedCount,
		KnownWorkerCount: knownWorkers,
	}
}

// withClock overrides the time source used for heartbeats and reclaim
// comparisons. Test-only hook.
func (r *Registry) withClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// PushPending appends a newly discovered path to the tail of the pending
// queue. This is the only operation the intake watcher is allowed to call;
// it takes only the pending lock, never the other two (spec.md section 4.1).
func (r *Registry) PushPending(path JobPath) {
	r.pendingMu.Lock()
	r.pending = append(r.pending, path)
	r.pendingMu.Unlock()
}
