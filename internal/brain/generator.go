package brain

import (
	"context"
	"fmt"
	"log/slog"

	"clawcraft.app/relay/common/llm"
	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/model"
)

const (
	generateTemperature = 0.2
	repairTemperature   = 0.0
	artifactSchemaName  = "clawcraft_artifact"
)

// Generator is the model side of the pipeline. Both calls return raw text;
// validation is the caller's job.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Repair(ctx context.Context, invalid string) (string, error)
}

type GeneratorConfig struct {
	MaxTokens int
	// StructuredOutput attaches the artifact JSON Schema to the generate call.
	StructuredOutput bool
}

type llmGenerator struct {
	client llm.Client
	cfg    GeneratorConfig
	schema any
}

func NewGenerator(client llm.Client, cfg GeneratorConfig) Generator {
	g := &llmGenerator{client: client, cfg: cfg}
	if cfg.StructuredOutput {
		g.schema = llm.GenerateSchema[model.Artifact]()
	}
	return g
}

func (g *llmGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	sc := logger.StartSpan(ctx, "brain.generate")
	defer sc.End()
	ctx = sc.Context()

	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.System},
			{Role: llm.RoleUser, Content: prompt.User},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: llm.Temp(generateTemperature),
	}
	if g.schema != nil {
		req.SchemaName = artifactSchemaName
		req.Schema = g.schema
	}

	return g.complete(ctx, sc, "generate", req)
}

func (g *llmGenerator) Repair(ctx context.Context, invalid string) (string, error) {
	sc := logger.StartSpan(ctx, "brain.repair")
	defer sc.End()
	ctx = sc.Context()

	req := llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: repairInstruction(invalid)},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: llm.Temp(repairTemperature),
	}

	return g.complete(ctx, sc, "repair", req)
}

func (g *llmGenerator) complete(ctx context.Context, sc *logger.SpanContext, call string, req llm.Request) (string, error) {
	resp, err := g.client.Complete(ctx, req)
	if err != nil {
		sc.RecordError(err)
		return "", fmt.Errorf("model %s call: %w", call, err)
	}

	slog.InfoContext(ctx, "model call completed",
		"call", call,
		"model", g.client.Model(),
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"output_length", len(resp.Content))

	return resp.Content, nil
}
