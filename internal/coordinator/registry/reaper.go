package registry

// reclaimLocked scans assigned for a worker whose heartbeat has exceeded
// the staleness bound and, on the first match, removes and returns its
// path. Iteration order over assigned is unspecified (map order); any
// stale worker is an acceptable victim.
//
// Callers must already hold checkInsMu, assignedMu, and pendingMu (in that
// order) — this is only ever called from inside PullFor. It deliberately
// does not remove the victim from checkIns: a worker that resumes after
// being reclaimed will keep pinging successfully, and its next /push will
// see itself missing from assigned and get Missing back. That is the
// documented failure mode for timed-out workers, not a bug to paper over.
func (r *Registry) reclaimLocked() (JobPath, bool) {
	now := r.now()
	for id, path := range r.assigned {
		last, ok := r.checkIns[id]
		if !ok {
			continue
		}
		if now.Sub(last) > r.staleness {
			delete(r.assigned, id)
			return path, true
		}
	}
	return "", false
}
