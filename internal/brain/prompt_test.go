package brain_test

import (
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildPrompt", func() {
	input := brain.PromptInput{
		Issue: model.ParsedIssue{
			Key:         "MOB-12",
			IssueType:   "Bug",
			Summary:     "App crashes on Android when rotating",
			Description: "Steps:\nrotate the device",
			Sections: model.Sections{
				StepsToReproduce: "rotate the device",
				Environment:      "Pixel 8",
			},
		},
		Platform:        model.PlatformMobile,
		ScriptRequested: true,
	}

	It("is deterministic", func() {
		Expect(brain.BuildPrompt(input)).To(Equal(brain.BuildPrompt(input)))
	})

	It("forbids non-JSON output in the system message", func() {
		p := brain.BuildPrompt(input)
		Expect(p.System).To(ContainSubstring("Return ONLY valid JSON"))
		Expect(p.System).To(ContainSubstring("Do not include markdown"))
	})

	It("states the coverage minimum and the automation rule", func() {
		p := brain.BuildPrompt(input)
		Expect(p.User).To(ContainSubstring("at least 5 Positive, 5 Negative, 5 Edge scenarios"))
		Expect(p.User).To(ContainSubstring("userRequestedGenerateScript=true"))
		Expect(p.User).To(ContainSubstring("stepsToReproduce is not empty"))
		Expect(p.User).To(ContainSubstring(`"selectors_and_mappings"`))
		Expect(p.User).To(ContainSubstring("IssueKey, RequirementKey, TestType, ScenarioType, Feature, ScenarioTitle, Priority, Labels, Gherkin"))
	})

	It("embeds the issue fields last", func() {
		p := brain.BuildPrompt(input)
		Expect(p.User).To(HaveSuffix("<ISSUE>\n" +
			"issueKey: MOB-12\n" +
			"issuetype.name: Bug\n" +
			"summary: App crashes on Android when rotating\n" +
			"description: Steps:\nrotate the device\n" +
			"acceptanceCriteria: \n" +
			"stepsToReproduce: rotate the device\n" +
			"expectedResult: \n" +
			"actualResult: \n" +
			"environment: Pixel 8\n" +
			"platformHint: MOBILE\n" +
			"userRequestedGenerateScript: true\n" +
			"</ISSUE>"))
	})

	It("changes only with its input", func() {
		other := input
		other.ScriptRequested = false
		Expect(brain.BuildPrompt(other).User).To(ContainSubstring("userRequestedGenerateScript: false"))
		Expect(brain.BuildPrompt(other).User).NotTo(Equal(brain.BuildPrompt(input).User))
	})
})
