package service_test

import (
	"clawcraft.app/relay/core/config"
	"clawcraft.app/relay/internal/service"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewServices", func() {
	var cfg config.Config

	BeforeEach(func() {
		cfg = config.Config{
			Slack: config.SlackConfig{BotToken: "xoxb-test"},
			Tracker: config.TrackerConfig{
				Provider: config.TrackerJira,
				Jira: config.JiraConfig{
					BaseURL:  "https://acme.atlassian.net",
					Email:    "qa@acme.test",
					APIToken: "token",
				},
			},
			LLM: config.LLMConfig{
				Provider:  "openai",
				APIKey:    "sk-test",
				Model:     "gpt-4.1",
				MaxTokens: 4096,
			},
		}
	})

	It("wires every integration", func() {
		services, err := service.NewServices(cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(services.IssueTracker()).NotTo(BeNil())
		Expect(services.Chat()).NotTo(BeNil())
		Expect(services.Generator()).NotTo(BeNil())
		Expect(services.Orchestrator()).NotTo(BeNil())
	})

	It("builds the GitLab tracker when selected", func() {
		cfg.Tracker = config.TrackerConfig{
			Provider: config.TrackerGitLab,
			GitLab: config.GitLabConfig{
				BaseURL:  "https://gitlab.acme.test",
				Token:    "glpat-test",
				Projects: map[string]string{"WEB": "acme/web"},
			},
		}

		_, err := service.NewServices(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an unknown tracker", func() {
		cfg.Tracker.Provider = "linear"

		_, err := service.NewServices(cfg)
		Expect(err).To(MatchError(ContainSubstring("unsupported tracker provider: linear")))
	})

	It("rejects a missing model key", func() {
		cfg.LLM.APIKey = ""

		_, err := service.NewServices(cfg)
		Expect(err).To(MatchError(ContainSubstring("creating llm client")))
	})
})
