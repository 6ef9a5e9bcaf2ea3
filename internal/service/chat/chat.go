package chat

import (
	"context"
)

// Upload is one text file to attach to a channel or thread.
type Upload struct {
	Filename string
	Content  string
}

// ChatService delivers pipeline output back to the chat platform.
type ChatService interface {
	// PostResponse answers through the one-shot callback URL of a slash command.
	PostResponse(ctx context.Context, responseURL, text string) error
	// PostMessage posts to a channel, or a thread when threadTS is set, and
	// returns the timestamp of the new message.
	PostMessage(ctx context.Context, channelID, text, threadTS string) (string, error)
	UploadFile(ctx context.Context, channelID string, file Upload, threadTS string) error
}
