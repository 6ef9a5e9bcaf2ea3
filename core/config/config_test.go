package config_test

import (
	"os"

	"clawcraft.app/relay/core/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {
	setEnv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		// Keep godotenv away from any developer .env file.
		setEnv("CLAWCRAFT_ENV", "test")
		setEnv("SLACK_BOT_TOKEN", "xoxb-test")
		setEnv("SLACK_SIGNING_SECRET", "signing")
		setEnv("TRACKER_PROVIDER", "jira")
		setEnv("JIRA_BASE_URL", "https://example.atlassian.net/")
		setEnv("JIRA_EMAIL", "qa@example.com")
		setEnv("JIRA_API_TOKEN", "token")
		setEnv("LLM_PROVIDER", "openai")
		setEnv("LLM_API_KEY", "sk-test")
		setEnv("DISPATCH_MODE", "inline")
	})

	It("loads a complete server configuration", func() {
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Tracker.Jira.BaseURL).To(Equal("https://example.atlassian.net"))
		Expect(cfg.LLM.Model).NotTo(BeEmpty())
		Expect(cfg.LLM.Enabled()).To(BeTrue())
		Expect(cfg.Dispatch.Mode).To(Equal(config.DispatchInline))
	})

	It("requires the signing secret for the server", func() {
		setEnv("SLACK_SIGNING_SECRET", "")
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("SLACK_SIGNING_SECRET")))
	})

	It("does not require slack credentials for the cli", func() {
		setEnv("SLACK_BOT_TOKEN", "")
		setEnv("SLACK_SIGNING_SECRET", "")
		_, err := config.Load(config.ServiceTypeCLI)
		Expect(err).NotTo(HaveOccurred())
	})

	It("parses gitlab project mappings", func() {
		setEnv("TRACKER_PROVIDER", "gitlab")
		setEnv("GITLAB_TOKEN", "glpat")
		setEnv("GITLAB_PROJECTS", "proj=group/proj, web = group/web ,broken")
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Tracker.GitLab.Projects).To(Equal(map[string]string{
			"PROJ": "group/proj",
			"WEB":  "group/web",
		}))
	})

	It("rejects an unknown tracker provider", func() {
		setEnv("TRACKER_PROVIDER", "trello")
		_, err := config.Load(config.ServiceTypeServer)
		Expect(err).To(MatchError(ContainSubstring("TRACKER_PROVIDER")))
	})

	It("requires redis dispatch for the worker", func() {
		_, err := config.Load(config.ServiceTypeWorker)
		Expect(err).To(MatchError(ContainSubstring("DISPATCH_MODE")))
	})
})
