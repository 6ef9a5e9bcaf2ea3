package worker

import (
	"context"

	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
}

// CommandHandler runs one command to a terminal state.
type CommandHandler interface {
	Handle(ctx context.Context, cmd model.Command) brain.Report
}

// ChatResponder answers a command through its response URL.
type ChatResponder interface {
	PostResponse(ctx context.Context, responseURL, text string) error
}
