package queue

import (
	"fmt"
	"strconv"

	"clawcraft.app/relay/internal/model"
	"github.com/redis/go-redis/v9"
)

// Job is one command travelling through the stream.
type Job struct {
	ID      int64
	Command model.Command
}

// Message is a Job read back from the stream.
type Message struct {
	ID  string // stream entry id
	Job Job
	Raw redis.XMessage
}

func jobValues(job Job) map[string]any {
	cmd := job.Command
	values := map[string]any{
		"job_id":           job.ID,
		"correlation_id":   cmd.CorrelationID,
		"issue_key":        cmd.IssueKey,
		"script_requested": strconv.FormatBool(cmd.ScriptRequested),
		"channel_id":       cmd.ChannelID,
		"response_url":     cmd.ResponseURL,
	}

	if cmd.TeamID != "" {
		values["team_id"] = cmd.TeamID
	}
	if cmd.UserID != "" {
		values["user_id"] = cmd.UserID
	}
	if cmd.ThreadTS != "" {
		values["thread_ts"] = cmd.ThreadTS
	}

	return values
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	jobID, err := parseInt64(msg.Values, "job_id")
	if err != nil {
		return Message{}, err
	}
	correlationID, err := parseString(msg.Values, "correlation_id")
	if err != nil {
		return Message{}, err
	}
	issueKey, err := parseString(msg.Values, "issue_key")
	if err != nil {
		return Message{}, err
	}
	channelID, err := parseString(msg.Values, "channel_id")
	if err != nil {
		return Message{}, err
	}
	responseURL, err := parseString(msg.Values, "response_url")
	if err != nil {
		return Message{}, err
	}
	scriptRequested, err := parseOptionalBool(msg.Values, "script_requested")
	if err != nil {
		return Message{}, err
	}

	if issueKey == "" || channelID == "" || responseURL == "" {
		return Message{}, fmt.Errorf("missing issue_key, channel_id or response_url")
	}

	return Message{
		ID: msg.ID,
		Job: Job{
			ID: jobID,
			Command: model.Command{
				CorrelationID:   correlationID,
				IssueKey:        issueKey,
				ScriptRequested: scriptRequested,
				TeamID:          parseOptionalString(msg.Values, "team_id"),
				ChannelID:       channelID,
				UserID:          parseOptionalString(msg.Values, "user_id"),
				ResponseURL:     responseURL,
				ThreadTS:        parseOptionalString(msg.Values, "thread_ts"),
			},
		},
		Raw: msg,
	}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	str := fmt.Sprint(raw)
	num, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}

func parseOptionalBool(values map[string]any, key string) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(fmt.Sprint(raw))
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
