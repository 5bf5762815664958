package tasks

import (
	"context"
	"time"
)

// newDispatchTask creates the task that runs one dispatcher iteration: send
// every broadcast whose scheduled time has arrived, then remove every
// broadcast whose auto-delete deadline has passed. Per-broadcast failures are
// logged and skipped so one broken broadcast cannot stall the rest.
func newDispatchTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "broadcast_dispatch")

	return func(ctx context.Context) error {
		startTime := time.Now()
		now := deps.now()

		due, err := deps.Store.ListDueBroadcasts(ctx, now)
		if err != nil {
			log.ErrorContext(ctx, "Failed to query due broadcasts", "error", err)
			return err
		}
		for _, b := range due {
			result, err := deps.Broadcasts.Send(ctx, b.ID)
			if err != nil {
				log.ErrorContext(ctx, "Failed to send due broadcast", "broadcast_id", b.ID, "error", err)
				continue
			}
			log.InfoContext(ctx, "Dispatched due broadcast",
				"broadcast_id", b.ID, "sent", result.Sent, "total", result.Total)
		}

		expired, err := deps.Store.ListDueAutoDeletions(ctx, now)
		if err != nil {
			log.ErrorContext(ctx, "Failed to query due auto-deletions", "error", err)
			return err
		}
		for _, b := range expired {
			if err := deps.Broadcasts.Delete(ctx, b.ID); err != nil {
				log.ErrorContext(ctx, "Failed to auto-delete broadcast", "broadcast_id", b.ID, "error", err)
				continue
			}
			log.InfoContext(ctx, "Auto-deleted expired broadcast", "broadcast_id", b.ID)
		}

		if len(due) > 0 || len(expired) > 0 {
			log.InfoContext(ctx, "Dispatcher iteration finished",
				"sent", len(due), "removed", len(expired), "duration", time.Since(startTime))
		}
		return nil
	}
}
