package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/queue"
	"clawcraft.app/relay/internal/worker"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeConsumer struct {
	mu      sync.Mutex
	batches [][]queue.Message
	readErr error
	acked   []string
}

func (f *fakeConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		err := f.readErr
		f.readErr = nil
		return nil, err
	}
	if len(f.batches) == 0 {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeConsumer) Ack(_ context.Context, msg queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, msg.ID)
	return nil
}

func (f *fakeConsumer) Acked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type fakeCommandHandler struct {
	mu      sync.Mutex
	handled []model.Command
	jobIDs  []int64
}

func (f *fakeCommandHandler) Handle(ctx context.Context, cmd model.Command) brain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handled = append(f.handled, cmd)
	if fields := logger.GetLogFields(ctx); fields.JobID != nil {
		f.jobIDs = append(f.jobIDs, *fields.JobID)
	}
	return brain.Report{
		CorrelationID: cmd.CorrelationID,
		Transitions:   []brain.State{brain.StateReceived, brain.StateDelivered},
	}
}

func message(id string, jobID int64, key string) queue.Message {
	return queue.Message{
		ID: id,
		Job: queue.Job{
			ID: jobID,
			Command: model.Command{
				CorrelationID: "corr-" + id,
				IssueKey:      key,
				ChannelID:     "C1",
				ResponseURL:   "https://hooks.slack.test/r",
			},
		},
	}
}

func runUntil(w *worker.Worker, done func() bool) {
	go func() { _ = w.Run(context.Background()) }()
	Eventually(done).Should(BeTrue())
	w.Stop()
}

var _ = Describe("Worker", func() {
	It("handles and acknowledges every message", func() {
		consumer := &fakeConsumer{batches: [][]queue.Message{
			{message("1-0", 11, "PROJ-1"), message("2-0", 12, "PROJ-2")},
		}}
		handler := &fakeCommandHandler{}
		w := worker.New(consumer, worker.NewJobHandler(handler))

		runUntil(w, func() bool { return len(consumer.Acked()) == 2 })

		Expect(consumer.Acked()).To(Equal([]string{"1-0", "2-0"}))
		Expect(handler.handled).To(HaveLen(2))
		Expect(handler.handled[1].IssueKey).To(Equal("PROJ-2"))
		Expect(handler.jobIDs).To(Equal([]int64{11, 12}))
	})

	It("acknowledges a message whose handler panics", func() {
		consumer := &fakeConsumer{batches: [][]queue.Message{
			{message("1-0", 1, "PROJ-1"), message("2-0", 2, "PROJ-2")},
		}}
		var mu sync.Mutex
		var seen []string
		handle := func(_ context.Context, job queue.Job) {
			mu.Lock()
			seen = append(seen, job.Command.IssueKey)
			mu.Unlock()
			if job.Command.IssueKey == "PROJ-1" {
				panic("boom")
			}
		}
		w := worker.New(consumer, handle)

		runUntil(w, func() bool { return len(consumer.Acked()) == 2 })

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(Equal([]string{"PROJ-1", "PROJ-2"}))
	})

	It("keeps running after a read error", func() {
		consumer := &fakeConsumer{
			readErr: errors.New("connection reset"),
			batches: [][]queue.Message{{message("1-0", 1, "PROJ-1")}},
		}
		w := worker.New(consumer, func(context.Context, queue.Job) {})

		go func() { _ = w.Run(context.Background()) }()
		Eventually(consumer.Acked, 3*time.Second).Should(Equal([]string{"1-0"}))
		w.Stop()
	})

	It("returns when its context is cancelled", func() {
		w := worker.New(&fakeConsumer{}, func(context.Context, queue.Job) {})
		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() { errCh <- w.Run(ctx) }()
		cancel()

		Eventually(errCh).Should(Receive(MatchError(context.Canceled)))
	})
})
