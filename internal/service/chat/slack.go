package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

const responseURLTimeout = 15 * time.Second

// Join failures that still leave the bot able to post or fall back to the
// response URL.
var ignorableJoinErrors = map[string]struct{}{
	"already_in_channel":                    {},
	"missing_scope":                         {},
	"method_not_supported_for_channel_type": {},
	"channel_not_found":                     {},
}

type slackChatService struct {
	client     *slack.Client
	httpClient *http.Client
}

func NewSlackChatService(botToken string, opts ...slack.Option) ChatService {
	return &slackChatService{
		client:     slack.New(botToken, opts...),
		httpClient: &http.Client{Timeout: responseURLTimeout},
	}
}

func (s *slackChatService) PostResponse(ctx context.Context, responseURL, text string) error {
	msg := &slack.WebhookMessage{
		ResponseType: "ephemeral",
		Text:         text,
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, s.httpClient, msg); err != nil {
		return fmt.Errorf("posting to response url: %w", err)
	}
	return nil
}

func (s *slackChatService) PostMessage(ctx context.Context, channelID, text, threadTS string) (string, error) {
	if err := s.ensureInChannel(ctx, channelID); err != nil {
		return "", err
	}

	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := s.client.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("posting slack message: %w", err)
	}
	return ts, nil
}

func (s *slackChatService) UploadFile(ctx context.Context, channelID string, file Upload, threadTS string) error {
	if err := s.ensureInChannel(ctx, channelID); err != nil {
		return err
	}

	_, err := s.client.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:         channelID,
		Filename:        file.Filename,
		Title:           file.Filename,
		Content:         file.Content,
		FileSize:        len(file.Content),
		ThreadTimestamp: threadTS,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", file.Filename, err)
	}
	return nil
}

func (s *slackChatService) ensureInChannel(ctx context.Context, channelID string) error {
	_, _, _, err := s.client.JoinConversationContext(ctx, channelID)
	if err == nil {
		return nil
	}
	if _, ok := ignorableJoinErrors[err.Error()]; ok {
		slog.DebugContext(ctx, "slack join skipped", "reason", err.Error())
		return nil
	}
	return fmt.Errorf("joining slack channel: %w", err)
}
