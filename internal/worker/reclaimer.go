package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/queue"
	"github.com/redis/go-redis/v9"
)

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// RedisReclaimer closes out commands left pending by a worker that died after
// XREADGROUP but before XACK. A reclaimed command is not run again: its user
// gets the generic failure reply and the entry is acknowledged.
type RedisReclaimer struct {
	client    *redis.Client
	cfg       RedisReclaimerConfig
	acker     Consumer
	responder ChatResponder

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, acker Consumer, responder ChatResponder) *RedisReclaimer {
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		acker:     acker,
		responder: responder,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the reclaimer loop. Blocks until Stop() is called.
func (r *RedisReclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "clawcraft.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.reclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *RedisReclaimer) reclaimOnce(ctx context.Context) error {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "found stale pending messages", "count", len(pending))

	for _, p := range pending {
		if err := r.reclaimMessage(ctx, p); err != nil {
			slog.ErrorContext(ctx, "failed to reclaim message",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer,
				"idle_time", p.Idle)
		}
	}

	return nil
}

func (r *RedisReclaimer) reclaimMessage(ctx context.Context, pending redis.XPendingExt) error {
	messages, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: []string{pending.ID},
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim: %w", err)
	}

	if len(messages) == 0 {
		slog.DebugContext(ctx, "message already reclaimed by another worker", "message_id", pending.ID)
		return nil
	}

	raw := messages[0]
	parsed, err := queue.ParseMessage(raw)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse reclaimed message, acknowledging to prevent loop",
			"error", err,
			"message_id", raw.ID)
		return r.acker.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw})
	}

	r.abandon(ctx, parsed, pending.Idle)

	return r.acker.Ack(ctx, parsed)
}

// abandon tells the user their command was lost.
func (r *RedisReclaimer) abandon(ctx context.Context, msg queue.Message, idle time.Duration) {
	cmd := msg.Job.Command
	jobID := msg.Job.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CorrelationID: &cmd.CorrelationID,
		IssueKey:      &cmd.IssueKey,
		ChannelID:     &cmd.ChannelID,
		JobID:         &jobID,
	})

	slog.WarnContext(ctx, "abandoning stale command",
		"message_id", msg.ID,
		"idle_time", idle)

	text := brain.UserMessage(nil, cmd.IssueKey, cmd.CorrelationID)
	if err := r.responder.PostResponse(ctx, cmd.ResponseURL, text); err != nil {
		slog.ErrorContext(ctx, "failed to notify user of abandoned command", "error", err)
	}
}
