package service

import (
	"fmt"

	"clawcraft.app/relay/common/llm"
	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/service/chat"
	"clawcraft.app/relay/internal/service/issue_tracker"
)

// Services wires the external integrations a process needs from config.
type Services struct {
	issues    issue_tracker.IssueTrackerService
	llmClient llm.Client
	chat      chat.ChatService
	cfg       config.Config
}

func NewServices(cfg config.Config) (*Services, error) {
	issues, err := issue_tracker.New(cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("creating issue tracker: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	return &Services{
		issues:    issues,
		llmClient: llmClient,
		chat:      chat.NewSlackChatService(cfg.Slack.BotToken),
		cfg:       cfg,
	}, nil
}

func (s *Services) IssueTracker() issue_tracker.IssueTrackerService {
	return s.issues
}

func (s *Services) Chat() chat.ChatService {
	return s.chat
}

func (s *Services) Generator() brain.Generator {
	return brain.NewGenerator(s.llmClient, brain.GeneratorConfig{
		MaxTokens:        s.cfg.LLM.MaxTokens,
		StructuredOutput: s.cfg.LLM.StructuredOutput,
	})
}

func (s *Services) Orchestrator() *brain.Orchestrator {
	return brain.NewOrchestrator(s.issues, s.Generator(), s.chat)
}
