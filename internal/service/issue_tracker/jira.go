package issue_tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/extract"
	"clawcraft.app/relay/internal/model"
)

const jiraTimeout = 20 * time.Second

type jiraIssueTrackerService struct {
	cfg    config.JiraConfig
	client *http.Client
}

func NewJiraIssueTrackerService(cfg config.JiraConfig) IssueTrackerService {
	return &jiraIssueTrackerService{
		cfg: cfg,
		client: &http.Client{
			Timeout: jiraTimeout,
		},
	}
}

type jiraIssueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary   string `json:"summary"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		// Description is a plain string on older instances and an ADF document on Cloud v3.
		Description json.RawMessage `json:"description"`
	} `json:"fields"`
	RenderedFields struct {
		Description string `json:"description"`
	} `json:"renderedFields"`
}

func (s *jiraIssueTrackerService) GetIssue(ctx context.Context, key string) (model.ParsedIssue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?expand=renderedFields",
		strings.TrimRight(s.cfg.BaseURL, "/"), url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.ParsedIssue{}, fmt.Errorf("creating jira request: %w", err)
	}
	req.SetBasicAuth(s.cfg.Email, s.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.ParsedIssue{}, fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ParsedIssue{}, fmt.Errorf("jira issue %s: %w", key, ErrIssueNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.WarnContext(ctx, "jira returned unexpected status",
			"status", resp.StatusCode,
			"body", string(body))
		return model.ParsedIssue{}, fmt.Errorf("jira returned status %d for %s", resp.StatusCode, key)
	}

	var data jiraIssueResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return model.ParsedIssue{}, fmt.Errorf("decoding jira issue: %w", err)
	}

	return s.mapToIssue(key, data), nil
}

func (s *jiraIssueTrackerService) mapToIssue(requestedKey string, data jiraIssueResponse) model.ParsedIssue {
	description := strings.TrimSpace(extract.FlattenRichTextJSON(data.Fields.Description))
	if description == "" && data.RenderedFields.Description != "" {
		description = extract.StripHTML(data.RenderedFields.Description)
	}

	issueKey := data.Key
	if issueKey == "" {
		issueKey = requestedKey
	}

	return model.ParsedIssue{
		Key:         issueKey,
		IssueType:   data.Fields.IssueType.Name,
		Summary:     data.Fields.Summary,
		Description: description,
		Sections:    extract.Sections(description),
	}
}
