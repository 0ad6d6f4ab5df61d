package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestRegistry(staleness time.Duration) (*Registry, *fakeClock) {
	fc := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New(staleness).withClock(fc.now)
	return r, fc
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- property tests (spec.md section 8) ---

func TestPathUniqueness(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/a.mp4")
	r.PushPending("/intake/b.mp4")

	w1 := r.Register()
	path, ok := r.PullFor(w1)
	if !ok {
		t.Fatal("expected a path")
	}

	for _, p := range r.SnapshotPending() {
		if p == path {
			t.Fatalf("path %q present in both pending and assigned", path)
		}
	}
}

func TestWorkerContainment(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/a.mp4")
	w1 := r.Register()
	if _, ok := r.PullFor(w1); !ok {
		t.Fatal("expected a path")
	}

	r.checkInsMu.Lock()
	_, known := r.checkIns[w1]
	r.checkInsMu.Unlock()
	if !known {
		t.Fatal("assigned worker must be a checkIns key")
	}
}

func TestFIFOUnderNoReclaim(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/x")
	r.PushPending("/intake/y")
	r.PushPending("/intake/z")

	w := r.Register()
	var got []string
	for i := 0; i < 3; i++ {
		p, ok := r.PullFor(w)
		if !ok {
			t.Fatalf("pull %d: expected a path", i)
		}
		got = append(got, p)
	}
	want := []string{"/intake/x", "/intake/y", "/intake/z"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pull order = %v, want %v", got, want)
		}
	}
}

func TestReclaimPrecedence(t *testing.T) {
	r, clock := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/a.mp4")

	w1 := r.Register()
	if _, ok := r.PullFor(w1); !ok {
		t.Fatal("expected a path for w1")
	}

	r.PushPending("/intake/b.mp4") // fresh work, should NOT be preferred

	clock.advance(61 * time.Second)

	w2 := r.Register()
	got, ok := r.PullFor(w2)
	if !ok {
		t.Fatal("expected reclaimed path for w2")
	}
	if got != "/intake/a.mp4" {
		t.Fatalf("expected reclaim of a.mp4, got %q", got)
	}
}

func TestIdempotentPing(t *testing.T) {
	r, clock := newTestRegistry(60 * time.Second)

	// Unknown worker: no-op.
	unknown := uuid.New()
	r.Ping(unknown)
	r.checkInsMu.Lock()
	_, exists := r.checkIns[unknown]
	r.checkInsMu.Unlock()
	if exists {
		t.Fatal("ping on unknown id must not create state")
	}

	// Known worker: only heartbeat updates.
	w := r.Register()
	r.checkInsMu.Lock()
	before := r.checkIns[w]
	r.checkInsMu.Unlock()

	clock.advance(5 * time.Second)
	r.Ping(w)

	r.checkInsMu.Lock()
	after := r.checkIns[w]
	r.checkInsMu.Unlock()
	if !after.After(before) {
		t.Fatalf("ping must advance heartbeat: before=%v after=%v", before, after)
	}
}

func TestPushRoundTripOk(t *testing.T) {
	dir := t.TempDir()
	completed := filepath.Join(dir, "completed")
	if err := os.MkdirAll(completed, 0o755); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(completed, "a.webm"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending(input)
	w := r.Register()
	if _, ok := r.PullFor(w); !ok {
		t.Fatal("expected a path")
	}

	cfg := CompletionConfig{FileExtension: "webm", CompletedDir: completed}
	if got := r.CompleteFor(w, cfg); got != Ok {
		t.Fatalf("CompleteFor = %v, want Ok", got)
	}

	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Fatal("input file should have been removed")
	}
	r.assignedMu.Lock()
	_, stillAssigned := r.assigned[w]
	r.assignedMu.Unlock()
	if stillAssigned {
		t.Fatal("assignment should be cleared")
	}
}

func TestPushRoundTripNotYet(t *testing.T) {
	dir := t.TempDir()
	completed := filepath.Join(dir, "completed")
	if err := os.MkdirAll(completed, 0o755); err != nil {
		t.Fatal(err)
	}
	input := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending(input)
	w := r.Register()
	if _, ok := r.PullFor(w); !ok {
		t.Fatal("expected a path")
	}

	before := len(r.SnapshotPending())
	cfg := CompletionConfig{FileExtension: "webm", CompletedDir: completed}
	if got := r.CompleteFor(w, cfg); got != NotYet {
		t.Fatalf("CompleteFor = %v, want NotYet", got)
	}
	after := r.SnapshotPending()
	if len(after) != before+1 {
		t.Fatalf("pending length = %d, want %d", len(after), before+1)
	}
	if after[len(after)-1] != input {
		t.Fatalf("re-enqueued path = %q, want %q at tail", after[len(after)-1], input)
	}
	r.assignedMu.Lock()
	_, stillAssigned := r.assigned[w]
	r.assignedMu.Unlock()
	if stillAssigned {
		t.Fatal("assignment should be cleared even on NotYet")
	}
}

func TestCompleteForMissing(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	if got := r.CompleteFor(uuid.New(), CompletionConfig{}); got != Missing {
		t.Fatalf("CompleteFor = %v, want Missing", got)
	}
}

func TestFailForRemovesWorkerAndRecyclesAssignment(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/a.mp4")
	w := r.Register()
	if _, ok := r.PullFor(w); !ok {
		t.Fatal("expected a path")
	}

	r.FailFor(w)

	r.checkInsMu.Lock()
	_, known := r.checkIns[w]
	r.checkInsMu.Unlock()
	if known {
		t.Fatal("failed worker must be removed from checkIns")
	}

	pending := r.SnapshotPending()
	if len(pending) != 1 || pending[0] != "/intake/a.mp4" {
		t.Fatalf("expected reclaimed path back in pending, got %v", pending)
	}
}

func TestFailForUnknownWorkerIsSilent(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.FailFor(uuid.New()) // must not panic or alter state
	if len(r.SnapshotPending()) != 0 {
		t.Fatal("unexpected pending mutation")
	}
}

func TestPullForUnknownWorker(t *testing.T) {
	r, _ := newTestRegistry(60 * time.Second)
	r.PushPending("/intake/a.mp4")
	if _, ok := r.PullFor(uuid.New()); ok {
		t.Fatal("unknown worker must not receive work")
	}
}
