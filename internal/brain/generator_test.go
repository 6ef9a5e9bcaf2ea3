package brain_test

import (
	"context"
	"errors"

	"clawcraft.app/relay/common/llm"
	"clawcraft.app/relay/internal/brain"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeLLMClient struct {
	requests []llm.Request
	content  string
	err      error
}

func (f *fakeLLMClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.content, FinishReason: "stop"}, nil
}

func (f *fakeLLMClient) Model() string { return "fake-model" }

var _ = Describe("Generator", func() {
	var (
		client *fakeLLMClient
		ctx    context.Context
	)

	BeforeEach(func() {
		client = &fakeLLMClient{content: "raw output"}
		ctx = context.Background()
	})

	It("sends system and user messages at a low temperature", func() {
		gen := brain.NewGenerator(client, brain.GeneratorConfig{MaxTokens: 4096})

		out, err := gen.Generate(ctx, brain.Prompt{System: "sys", User: "usr"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("raw output"))

		Expect(client.requests).To(HaveLen(1))
		req := client.requests[0]
		Expect(req.Messages).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "usr"},
		}))
		Expect(*req.Temperature).To(BeNumerically("==", 0.2))
		Expect(req.MaxTokens).To(Equal(4096))
		Expect(req.Schema).To(BeNil())
	})

	It("attaches the artifact schema when structured output is on", func() {
		gen := brain.NewGenerator(client, brain.GeneratorConfig{StructuredOutput: true})

		_, err := gen.Generate(ctx, brain.Prompt{System: "sys", User: "usr"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.requests[0].SchemaName).NotTo(BeEmpty())
		Expect(client.requests[0].Schema).NotTo(BeNil())
	})

	It("repairs with a single user message at temperature zero", func() {
		gen := brain.NewGenerator(client, brain.GeneratorConfig{StructuredOutput: true})

		_, err := gen.Repair(ctx, `{"broken":`)
		Expect(err).NotTo(HaveOccurred())

		req := client.requests[0]
		Expect(req.Messages).To(Equal([]llm.Message{{
			Role:    llm.RoleUser,
			Content: `Return ONLY valid JSON matching the schema. Here is the invalid output: {"broken":`,
		}}))
		Expect(*req.Temperature).To(BeZero())
		Expect(req.Schema).To(BeNil())
	})

	It("wraps transport failures", func() {
		client.err = errors.New("connection reset")
		gen := brain.NewGenerator(client, brain.GeneratorConfig{})

		_, err := gen.Generate(ctx, brain.Prompt{})
		Expect(err).To(MatchError(client.err))
	})
})
