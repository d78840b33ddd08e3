package bench

import (
	"sync"
	"time"
)

// Metrics summarizes one load run at a single concurrency level.
type Metrics struct {
	Workers       int
	TotalOps      int
	SuccessfulOps int
	FailedOps     int
	LockTimeouts  int
	Elapsed       time.Duration
}

// recorder accumulates outcomes from all workers of one run. The total and
// the relevant sub-counter are incremented under a single lock hold, so
// TotalOps always equals SuccessfulOps + FailedOps regardless of
// interleaving.
type recorder struct {
	mu      sync.Mutex
	metrics Metrics
}

func (r *recorder) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.TotalOps++
	r.metrics.SuccessfulOps++
}

func (r *recorder) recordFailure(lockTimeout bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics.TotalOps++
	r.metrics.FailedOps++
	if lockTimeout {
		r.metrics.LockTimeouts++
	}
}

// snapshot returns the accumulated metrics. Only called after every worker
// has joined.
func (r *recorder) snapshot() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}
