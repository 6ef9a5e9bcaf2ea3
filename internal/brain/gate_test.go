package brain_test

import (
	"clawcraft.app/relay/internal/brain"
	"clawcraft.app/relay/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApplyAutomationGate", func() {
	var artifact model.Artifact

	BeforeEach(func() {
		a, err := brain.ValidateResponse(encode(artifactDoc("PROJ-1", "Bug")))
		Expect(err).NotTo(HaveOccurred())
		artifact = *a
	})

	bugWithSteps := model.ParsedIssue{
		Key:       "PROJ-1",
		IssueType: "Bug",
		Sections:  model.Sections{StepsToReproduce: "1. open login"},
	}

	It("keeps the model's automation for an eligible bug", func() {
		gated, res := brain.ApplyAutomationGate(artifact, bugWithSteps, true)

		Expect(res.Overridden).To(BeFalse())
		Expect(gated.Automation).To(Equal(artifact.Automation))
		Expect(gated.Automation.Included).To(BeTrue())
	})

	It("does nothing when no script was requested", func() {
		story := model.ParsedIssue{IssueType: "Story"}
		gated, res := brain.ApplyAutomationGate(artifact, story, false)

		Expect(res.Overridden).To(BeFalse())
		Expect(gated).To(Equal(artifact))
	})

	It("forces automation off for a bug without steps", func() {
		bug := model.ParsedIssue{IssueType: "Bug", Sections: model.Sections{StepsToReproduce: "   "}}
		gated, res := brain.ApplyAutomationGate(artifact, bug, true)

		Expect(res).To(Equal(brain.GateResult{Overridden: true, MissingSteps: true}))
		Expect(gated.Automation.Included).To(BeFalse())
		Expect(gated.Automation.Target).To(BeNil())
		Expect(gated.Automation.Language).To(BeNil())
		Expect(gated.Automation.Script).To(BeEmpty())
		Expect(gated.Automation.SelectorsAndMappings).To(BeEmpty())
		Expect(gated.Automation.Notes).To(Equal([]string{
			"Uses staging credentials",
			"Script was requested but bug lacks clear Steps to Reproduce.",
		}))
	})

	It("forces automation off for a story", func() {
		story := model.ParsedIssue{IssueType: "User Story", Sections: model.Sections{StepsToReproduce: "1. go"}}
		gated, res := brain.ApplyAutomationGate(artifact, story, true)

		Expect(res).To(Equal(brain.GateResult{Overridden: true}))
		Expect(gated.Automation.Included).To(BeFalse())
		Expect(gated.Automation.Notes).To(ContainElement("Script was requested but issue type is not Bug."))
	})

	It("leaves the input artifact untouched", func() {
		notes := make([]string, 1, 4)
		notes[0] = "model note"
		artifact.Automation.Notes = notes

		brain.ApplyAutomationGate(artifact, model.ParsedIssue{IssueType: "Story"}, true)

		Expect(artifact.Automation.Included).To(BeTrue())
		Expect(notes[:cap(notes)][1]).To(BeEmpty())
	})
})
