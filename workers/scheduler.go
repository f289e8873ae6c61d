// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// LockPruner drops idle per-user locks; locks.KeyedMutex implements it.
type LockPruner interface {
	Prune(idle time.Duration) int
}

// Scheduler runs the service's housekeeping jobs. The progression core never
// depends on it: day rollover stays lazy.
type Scheduler struct {
	sched gocron.Scheduler
}

// StartScheduler registers the archive job (when archiver is non-nil) and the
// lock pruning job (when pruner is non-nil), then starts them.
func StartScheduler(ctx context.Context, archiver *CompletionArchiver, archiveEvery time.Duration, pruner LockPruner) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if archiver != nil {
		if archiveEvery <= 0 {
			archiveEvery = 10 * time.Minute
		}
		_, err = sched.NewJob(
			gocron.DurationJob(archiveEvery),
			gocron.NewTask(func() {
				runCtx, cancel := context.WithTimeout(ctx, archiveEvery)
				defer cancel()
				n, err := archiver.RunOnce(runCtx)
				if err != nil {
					log.Printf("[Scheduler] archive run error: %v", err)
					return
				}
				if n > 0 {
					log.Printf("✅ [Scheduler] archived %d completion record(s)", n)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("register archive job: %w", err)
		}
	}

	if pruner != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(10*time.Minute),
			gocron.NewTask(func() {
				if n := pruner.Prune(30 * time.Minute); n > 0 {
					log.Printf("[Scheduler] pruned %d idle user lock(s)", n)
				}
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("register prune job: %w", err)
		}
	}

	sched.Start()
	return &Scheduler{sched: sched}, nil
}

// Shutdown stops the jobs and waits for running ones to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
