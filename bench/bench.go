// Package bench drives concurrent upsert load against the record store to
// characterize write-lock contention under increasing parallelism.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-dnscache/database"
)

// Config controls a load run.
type Config struct {
	// OpsPerWorker is how many sequential upserts each worker issues.
	OpsPerWorker int
	// OpTimeout is the latency budget for a single upsert.
	OpTimeout time.Duration
	// Pause is an optional delay between operations, simulating real-world
	// pacing. Zero means no pause.
	Pause time.Duration
	// TTL applied to every record written by the run.
	TTL time.Duration
	// Logger for run progress. Nil means no logging.
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.OpsPerWorker <= 0 {
		c.OpsPerWorker = 1000
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 100 * time.Millisecond
	}
	if c.TTL <= 0 {
		c.TTL = 300 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Run drives one load run: workers goroutines each issue cfg.OpsPerWorker
// sequential upserts with a bounded per-operation deadline, keys partitioned
// per worker so concurrent workers never collide on the same key. Elapsed
// time is measured from spawn to join.
func Run(ctx context.Context, store *database.Store, workers int, cfg Config) Metrics {
	cfg = cfg.withDefaults()

	var (
		rec   recorder
		wg    sync.WaitGroup
		start = time.Now()
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(ctx, store, workerID, cfg, &rec)
		}(i)
	}

	wg.Wait()

	var metrics = rec.snapshot()
	metrics.Workers = workers
	metrics.Elapsed = time.Since(start)
	return metrics
}

func runWorker(ctx context.Context, store *database.Store, workerID int, cfg Config, rec *recorder) {
	for op := 0; op < cfg.OpsPerWorker; op++ {
		var (
			n        = workerID*cfg.OpsPerWorker + op
			hostname = fmt.Sprintf("test%d.example.com", n)
			ip       = fmt.Sprintf("192.168.1.%d", n%255)
		)

		err := upsertWithTimeout(ctx, store, hostname, ip, cfg)
		switch {
		case err == nil:
			rec.recordSuccess()
		case errors.Is(err, database.ErrLockTimeout):
			rec.recordFailure(true)
		default:
			rec.recordFailure(false)
		}

		if cfg.Pause > 0 {
			time.Sleep(cfg.Pause)
		}
	}
}

func upsertWithTimeout(ctx context.Context, store *database.Store, hostname, ip string, cfg Config) error {
	opCtx, cancel := context.WithTimeout(ctx, cfg.OpTimeout)
	defer cancel()

	_, err := store.Upsert(opCtx, hostname, "A", ip, cfg.TTL, time.Now())
	return err
}

// RunLevels runs the harness once per worker count, in the given order,
// against the same store. An ascending ladder of levels produces the
// contention curve: one Metrics row per level.
func RunLevels(ctx context.Context, store *database.Store, levels []int, cfg Config) []Metrics {
	cfg = cfg.withDefaults()

	var (
		runID   = uuid.New().String()[0:8]
		results = make([]Metrics, 0, len(levels))
	)

	for _, workers := range levels {
		cfg.Logger.Info("starting load run",
			"run_id", runID, "workers", workers, "ops_per_worker", cfg.OpsPerWorker)

		var metrics = Run(ctx, store, workers, cfg)

		cfg.Logger.Info("load run finished",
			"run_id", runID, "workers", workers,
			"total", metrics.TotalOps, "failed", metrics.FailedOps,
			"lock_timeouts", metrics.LockTimeouts, "elapsed", metrics.Elapsed)

		results = append(results, metrics)
	}

	return results
}
