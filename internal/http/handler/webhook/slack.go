package webhook

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"

	"clawcraft.app/relay/common/id"
	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/queue"
)

const (
	msgInvalidSignature = "Invalid Slack signature."
	msgInvalidPayload   = "Invalid slash command payload."
	msgUsage            = "Usage: /clawcraft PROJ-123 [generate script]"
)

// SlackCommandHandler acknowledges slash commands and hands accepted ones to
// the dispatcher. Slack gives the acknowledgement three seconds, so nothing
// slow happens on the request path.
type SlackCommandHandler struct {
	signingSecret string
	dispatcher    queue.Dispatcher
}

func NewSlackCommandHandler(signingSecret string, dispatcher queue.Dispatcher) *SlackCommandHandler {
	return &SlackCommandHandler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
	}
}

func (h *SlackCommandHandler) HandleCommand(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if err := h.verify(c.Request.Header, body); err != nil {
		slog.WarnContext(ctx, "rejected slash command", "reason", err)
		c.String(http.StatusUnauthorized, msgInvalidSignature)
		return
	}

	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	s, err := slack.SlashCommandParse(c.Request)
	if err != nil || !complete(s) {
		c.String(http.StatusBadRequest, msgInvalidPayload)
		return
	}

	issueKey, scriptRequested, ok := model.ParseCommandText(s.Text)
	if !ok {
		c.String(http.StatusOK, msgUsage)
		return
	}

	cmd := model.Command{
		CorrelationID:   id.NewCorrelationID(),
		IssueKey:        issueKey,
		ScriptRequested: scriptRequested,
		TeamID:          s.TeamID,
		ChannelID:       s.ChannelID,
		UserID:          s.UserID,
		ResponseURL:     s.ResponseURL,
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CorrelationID: &cmd.CorrelationID,
		IssueKey:      &cmd.IssueKey,
		ChannelID:     &cmd.ChannelID,
		Component:     "clawcraft.http.slack_command",
	})
	c.Request = c.Request.WithContext(ctx)

	job, err := h.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		slog.ErrorContext(ctx, "failed to dispatch command", "error", err)
		c.String(http.StatusOK, brain.UserMessage(err, cmd.IssueKey, cmd.CorrelationID))
		return
	}

	slog.InfoContext(ctx, "slash command accepted",
		"job_id", job.ID,
		"command", s.Command,
		"user_id", s.UserID,
		"script_requested", scriptRequested)

	c.String(http.StatusOK, fmt.Sprintf("Working on %s... I'll reply in this thread with CSV/JSON.", issueKey))
}

// verify checks the v0 request signature. Requests whose timestamp is more
// than five minutes off are rejected.
func (h *SlackCommandHandler) verify(header http.Header, body []byte) error {
	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}

func complete(s slack.SlashCommand) bool {
	if s.TeamID == "" || s.ChannelID == "" || s.UserID == "" || s.Command == "" {
		return false
	}
	u, err := url.ParseRequestURI(s.ResponseURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}
