package worker

import (
	"context"
	"log/slog"
	"time"

	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/queue"
)

// NewJobHandler adapts a CommandHandler to the queue's job callback. Inline
// dispatch and the stream worker share it.
func NewJobHandler(handler CommandHandler) queue.JobHandler {
	return func(ctx context.Context, job queue.Job) {
		jobID := job.ID
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			JobID:     &jobID,
			Component: "clawcraft.worker",
		})

		start := time.Now()
		report := handler.Handle(ctx, job.Command)

		slog.InfoContext(ctx, "job finished",
			"final_state", report.FinalState(),
			"failure", report.Failure,
			"duration_ms", time.Since(start).Milliseconds())
	}
}
