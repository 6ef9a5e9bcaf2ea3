package issue_tracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/extract"
	"clawcraft.app/relay/internal/model"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLab has no native story type; labels carry it. Scoped labels such as
// "type::bug" are matched by the same substrings.
const (
	gitLabTypeBug   = "Bug"
	gitLabTypeStory = "Story"
)

type gitLabIssueTrackerService struct {
	client   *gitlab.Client
	projects map[string]string
}

func NewGitLabIssueTrackerService(cfg config.GitLabConfig) (IssueTrackerService, error) {
	client, err := newGitLabClient(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &gitLabIssueTrackerService{
		client:   client,
		projects: cfg.Projects,
	}, nil
}

func newGitLabClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

// GetIssue resolves "PROJ-42" to issue IID 42 of the project mapped to PROJ.
// Keys with an unmapped prefix are reported as not found.
func (s *gitLabIssueTrackerService) GetIssue(ctx context.Context, key string) (model.ParsedIssue, error) {
	project, iid, err := s.resolveKey(key)
	if err != nil {
		return model.ParsedIssue{}, err
	}

	gitlabIssue, resp, err := s.client.Issues.GetIssue(project, iid, nil, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return model.ParsedIssue{}, fmt.Errorf("gitlab issue %s: %w", key, ErrIssueNotFound)
		}
		return model.ParsedIssue{}, fmt.Errorf("fetching issue from gitlab: %w", err)
	}

	return mapGitLabIssue(key, gitlabIssue), nil
}

func (s *gitLabIssueTrackerService) resolveKey(key string) (string, int64, error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("malformed key %q: %w", key, ErrIssueNotFound)
	}

	project, ok := s.projects[strings.ToUpper(key[:idx])]
	if !ok {
		return "", 0, fmt.Errorf("no gitlab project mapped for %q: %w", key[:idx], ErrIssueNotFound)
	}

	iid, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed key %q: %w", key, ErrIssueNotFound)
	}

	return project, iid, nil
}

func mapGitLabIssue(key string, gitlabIssue *gitlab.Issue) model.ParsedIssue {
	description := strings.TrimSpace(gitlabIssue.Description)

	var nativeType string
	if gitlabIssue.IssueType != nil {
		nativeType = *gitlabIssue.IssueType
	}

	return model.ParsedIssue{
		Key:         key,
		IssueType:   gitLabIssueType(gitlabIssue.Labels, nativeType),
		Summary:     gitlabIssue.Title,
		Description: description,
		Sections:    extract.Sections(description),
	}
}

// gitLabIssueType derives a tracker-neutral type name. Labels win over
// GitLab's own issue_type ("issue", "incident", "test_case", ...).
func gitLabIssueType(labels []string, nativeType string) string {
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l), "bug") {
			return gitLabTypeBug
		}
	}
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l), "story") {
			return gitLabTypeStory
		}
	}
	if nativeType == "" {
		return "Issue"
	}
	return nativeType
}
