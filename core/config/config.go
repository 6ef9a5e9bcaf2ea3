package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel     OTelConfig
	Slack    SlackConfig
	Tracker  TrackerConfig
	LLM      LLMConfig
	Dispatch DispatchConfig
	Env      string
	Port     string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type SlackConfig struct {
	BotToken      string
	SigningSecret string
}

type TrackerConfig struct {
	Provider string // "jira" or "gitlab"
	Jira     JiraConfig
	GitLab   GitLabConfig
}

type JiraConfig struct {
	BaseURL  string
	Email    string
	APIToken string
}

type GitLabConfig struct {
	BaseURL string
	Token   string
	// Projects maps an issue key prefix (e.g. "PROJ") to a GitLab project path.
	Projects map[string]string
}

type LLMConfig struct {
	Provider         string // "openai" or "anthropic"
	APIKey           string
	BaseURL          string // Optional: for custom endpoints
	Model            string
	MaxTokens        int
	StructuredOutput bool
}

type DispatchConfig struct {
	Mode          string // "inline" or "redis"
	RedisURL      string
	RedisStream   string
	RedisGroup    string
	RedisConsumer string
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
	ServiceTypeCLI    ServiceType = "cli"
)

const (
	TrackerJira   = "jira"
	TrackerGitLab = "gitlab"

	DispatchInline = "inline"
	DispatchRedis  = "redis"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the slash-command server
//   - .env.worker for the queue worker
//   - .env.cli for the local generator
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CLAWCRAFT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("CLAWCRAFT_ENV", "development"),
		Port: getEnv("PORT", "3000"),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "clawcraft"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Slack: SlackConfig{
			BotToken:      getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		},
		Tracker: TrackerConfig{
			Provider: strings.ToLower(getEnv("TRACKER_PROVIDER", TrackerJira)),
			Jira: JiraConfig{
				BaseURL:  strings.TrimRight(getEnv("JIRA_BASE_URL", ""), "/"),
				Email:    getEnv("JIRA_EMAIL", ""),
				APIToken: getEnv("JIRA_API_TOKEN", ""),
			},
			GitLab: GitLabConfig{
				BaseURL:  getEnv("GITLAB_BASE_URL", ""),
				Token:    getEnv("GITLAB_TOKEN", ""),
				Projects: parsePairs(getEnv("GITLAB_PROJECTS", "")),
			},
		},
		LLM: LLMConfig{
			Provider:         strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			APIKey:           getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:          getEnv("LLM_BASE_URL", ""),
			Model:            getEnv("LLM_MODEL", getEnv("OPENAI_MODEL", "gpt-4.1")),
			MaxTokens:        getEnvInt("LLM_MAX_TOKENS", 16384),
			StructuredOutput: getEnvBool("LLM_STRUCTURED_OUTPUT", false),
		},
		Dispatch: DispatchConfig{
			Mode:          strings.ToLower(getEnv("DISPATCH_MODE", DispatchInline)),
			RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisStream:   getEnv("REDIS_STREAM", "clawcraft_commands"),
			RedisGroup:    getEnv("REDIS_CONSUMER_GROUP", "clawcraft_group"),
			RedisConsumer: getEnv("REDIS_CONSUMER_NAME", "worker"),
		},
	}

	if err := cfg.validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate(serviceType ServiceType) error {
	if serviceType != ServiceTypeCLI {
		if c.Slack.BotToken == "" {
			return fmt.Errorf("SLACK_BOT_TOKEN is required")
		}
		if serviceType == ServiceTypeServer && c.Slack.SigningSecret == "" {
			return fmt.Errorf("SLACK_SIGNING_SECRET is required")
		}
	}

	switch c.Tracker.Provider {
	case TrackerJira:
		if c.Tracker.Jira.BaseURL == "" || c.Tracker.Jira.Email == "" || c.Tracker.Jira.APIToken == "" {
			return fmt.Errorf("JIRA_BASE_URL, JIRA_EMAIL and JIRA_API_TOKEN are required")
		}
	case TrackerGitLab:
		if c.Tracker.GitLab.Token == "" || len(c.Tracker.GitLab.Projects) == 0 {
			return fmt.Errorf("GITLAB_TOKEN and GITLAB_PROJECTS are required")
		}
	default:
		return fmt.Errorf("unsupported TRACKER_PROVIDER: %s", c.Tracker.Provider)
	}

	if !c.LLM.Enabled() {
		return fmt.Errorf("LLM_API_KEY (or OPENAI_API_KEY) is required")
	}

	switch c.Dispatch.Mode {
	case DispatchInline, DispatchRedis:
	default:
		return fmt.Errorf("unsupported DISPATCH_MODE: %s", c.Dispatch.Mode)
	}
	if serviceType == ServiceTypeWorker && c.Dispatch.Mode != DispatchRedis {
		return fmt.Errorf("worker requires DISPATCH_MODE=redis")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// parsePairs parses "A=x,B=y" into a map. Keys are upper-cased.
func parsePairs(s string) map[string]string {
	pairs := make(map[string]string)
	if s == "" {
		return pairs
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			key := strings.ToUpper(strings.TrimSpace(kv[0]))
			value := strings.TrimSpace(kv[1])
			if key != "" && value != "" {
				pairs[key] = value
			}
		}
	}
	return pairs
}
