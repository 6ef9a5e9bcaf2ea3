package issue_tracker

import (
	"context"
	"errors"
	"fmt"

	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/model"
)

// ErrIssueNotFound is returned when the tracker has no issue for the key.
var ErrIssueNotFound = errors.New("issue not found")

// IssueTrackerService reads one issue and returns it with its description
// sections already extracted.
type IssueTrackerService interface {
	GetIssue(ctx context.Context, key string) (model.ParsedIssue, error)
}

// New builds the tracker selected by cfg.Provider.
func New(cfg config.TrackerConfig) (IssueTrackerService, error) {
	switch cfg.Provider {
	case config.TrackerJira:
		return NewJiraIssueTrackerService(cfg.Jira), nil
	case config.TrackerGitLab:
		return NewGitLabIssueTrackerService(cfg.GitLab)
	default:
		return nil, fmt.Errorf("unsupported tracker provider: %s", cfg.Provider)
	}
}
