package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"clawcraft.app/relay/common/id"
	"clawcraft.app/relay/internal/model"
)

// JobHandler runs one job to a terminal state. It reports failures to the user
// itself, so it has no error to return.
type JobHandler func(ctx context.Context, job Job)

// Dispatcher hands an accepted command to the background pipeline and returns
// without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd model.Command) (Job, error)
}

// InlineDispatcher runs each job on its own goroutine in the current process.
type InlineDispatcher struct {
	handle JobHandler
	wg     sync.WaitGroup
}

func NewInlineDispatcher(handle JobHandler) *InlineDispatcher {
	return &InlineDispatcher{handle: handle}
}

// Dispatch detaches the job from ctx's cancellation; the webhook request that
// triggered it ends long before the pipeline does.
func (d *InlineDispatcher) Dispatch(ctx context.Context, cmd model.Command) (Job, error) {
	job := Job{ID: id.New(), Command: cmd}
	bg := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(bg, "panic recovered in inline job",
					"panic", r,
					"job_id", job.ID)
			}
		}()
		d.handle(bg, job)
	}()

	return job, nil
}

// Wait blocks until in-flight jobs finish or ctx is done.
func (d *InlineDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for inline jobs: %w", ctx.Err())
	}
}

type queueDispatcher struct {
	producer Producer
}

// NewQueueDispatcher appends commands to the stream for cmd/worker.
func NewQueueDispatcher(producer Producer) Dispatcher {
	return &queueDispatcher{producer: producer}
}

func (d *queueDispatcher) Dispatch(ctx context.Context, cmd model.Command) (Job, error) {
	job := Job{ID: id.New(), Command: cmd}
	if err := d.producer.Enqueue(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}
