package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clawcraft.app/relay/internal/queue"
)

// Worker consumes queued commands. Every message is acknowledged once its
// pipeline reaches a terminal state, whatever the outcome: a command never
// runs twice.
type Worker struct {
	consumer Consumer
	handle   queue.JobHandler

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handle queue.JobHandler) *Worker {
	return &Worker{
		consumer:  consumer,
		handle:    handle,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.processMessageSafe(ctx, msg)

		if err := w.consumer.Ack(ctx, msg); err != nil {
			slog.WarnContext(ctx, "failed to ACK message",
				"error", err,
				"message_id", msg.ID,
				"job_id", msg.Job.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"job_id", msg.Job.ID)
		}
	}()

	slog.InfoContext(ctx, "processing message",
		"message_id", msg.ID,
		"job_id", msg.Job.ID,
		"issue_key", msg.Job.Command.IssueKey)

	w.handle(ctx, msg.Job)
}
