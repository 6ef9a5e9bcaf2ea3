package model

import (
	"regexp"
	"strings"
)

var (
	issueKeyPattern       = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)
	generateScriptPattern = regexp.MustCompile(`(?i)\bgenerate\s+script\b`)
)

// Command is one accepted slash-command invocation. It is the unit handed to
// the background pipeline, either directly or through the queue.
type Command struct {
	CorrelationID   string `json:"correlation_id"`
	IssueKey        string `json:"issue_key"`
	ScriptRequested bool   `json:"script_requested"`
	TeamID          string `json:"team_id"`
	ChannelID       string `json:"channel_id"`
	UserID          string `json:"user_id"`
	ResponseURL     string `json:"response_url"`
	// ThreadTS is empty for slash commands; results then go to the channel.
	ThreadTS        string `json:"thread_ts,omitempty"`
}

// ParseCommandText reads the slash-command text. The first token, upper-cased,
// must look like an issue key; "generate script" anywhere after it requests an
// automation script. ok is false when no valid key is present.
func ParseCommandText(text string) (issueKey string, scriptRequested bool, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false, false
	}

	key := strings.ToUpper(fields[0])
	if !issueKeyPattern.MatchString(key) {
		return "", false, false
	}

	rest := strings.Join(fields[1:], " ")
	return key, generateScriptPattern.MatchString(rest), true
}
