package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// StartReconcileScheduler runs Reconcile every interval. The returned
// scheduler must be shut down by the caller. A non-positive interval disables
// the job and returns nil.
func (s *ReconcileService) StartReconcileScheduler(ctx context.Context, interval time.Duration, clock clockwork.Clock) (gocron.Scheduler, error) {
	if interval <= 0 {
		log.Printf("⏸️ [Scheduler] reconciliation disabled")
		return nil, nil
	}

	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := s.Reconcile(ctx)
			if err != nil {
				log.Printf("[Scheduler] reconciliation failed: %v", err)
				return
			}
			if report.Repairs() == 0 {
				log.Printf("✅ [Scheduler] history consistent (%d participants, %d entries)",
					report.Participants, report.Entries)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	log.Printf("⏰ [Scheduler] reconciliation every %s", interval)
	return sched, nil
}
