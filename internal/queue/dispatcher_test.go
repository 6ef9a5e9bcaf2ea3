package queue_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/queue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeProducer struct {
	jobs []queue.Job
	err  error
}

func (f *fakeProducer) Enqueue(_ context.Context, job queue.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

var _ = Describe("InlineDispatcher", func() {
	cmd := model.Command{IssueKey: "PROJ-1", ChannelID: "C1", ResponseURL: "https://hooks.slack.test/r"}

	It("runs the job after the request context is cancelled", func() {
		release := make(chan struct{})
		var (
			mu      sync.Mutex
			handled []queue.Job
			ctxErr  error
			corrID  *string
		)

		d := queue.NewInlineDispatcher(func(ctx context.Context, job queue.Job) {
			<-release
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, job)
			ctxErr = ctx.Err()
			corrID = logger.GetLogFields(ctx).CorrelationID
		})

		reqCtx, cancel := context.WithCancel(logger.WithLogFields(context.Background(), logger.LogFields{
			CorrelationID: logger.Ptr("corr-1"),
		}))
		job, err := d.Dispatch(reqCtx, cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(job.ID).NotTo(BeZero())
		cancel()
		close(release)

		Expect(d.Wait(context.Background())).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(handled).To(HaveLen(1))
		Expect(handled[0].Command).To(Equal(cmd))
		Expect(ctxErr).NotTo(HaveOccurred())
		Expect(*corrID).To(Equal("corr-1"))
	})

	It("survives a panicking job", func() {
		d := queue.NewInlineDispatcher(func(context.Context, queue.Job) {
			panic("boom")
		})

		_, err := d.Dispatch(context.Background(), cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Wait(context.Background())).To(Succeed())
	})

	It("stops waiting when its context expires", func() {
		block := make(chan struct{})
		DeferCleanup(func() { close(block) })

		d := queue.NewInlineDispatcher(func(context.Context, queue.Job) { <-block })
		_, err := d.Dispatch(context.Background(), cmd)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(d.Wait(ctx)).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("QueueDispatcher", func() {
	It("enqueues the command with a fresh job id", func() {
		p := &fakeProducer{}
		d := queue.NewQueueDispatcher(p)

		job, err := d.Dispatch(context.Background(), model.Command{IssueKey: "PROJ-2"})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.jobs).To(Equal([]queue.Job{job}))
		Expect(job.Command.IssueKey).To(Equal("PROJ-2"))
	})

	It("returns enqueue failures", func() {
		p := &fakeProducer{err: errors.New("redis down")}
		d := queue.NewQueueDispatcher(p)

		_, err := d.Dispatch(context.Background(), model.Command{IssueKey: "PROJ-2"})
		Expect(err).To(MatchError(p.err))
	})
})
