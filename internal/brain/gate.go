package brain

import "clawcraft.app/relay/internal/model"

const (
	noteNotBug       = "Script was requested but issue type is not Bug."
	noteMissingSteps = "Script was requested but bug lacks clear Steps to Reproduce."
)

// GateResult reports whether ApplyAutomationGate overrode the model.
type GateResult struct {
	Overridden   bool
	MissingSteps bool
}

// ApplyAutomationGate enforces automation eligibility on a validated artifact.
// When a script was requested for an issue that is not a Bug, or for a Bug with
// no steps to reproduce, the automation block is replaced with a not-included
// block. Model notes are kept and the reason is appended.
//
// The artifact is not mutated; a gated copy is returned.
func ApplyAutomationGate(artifact model.Artifact, issue model.ParsedIssue, scriptRequested bool) (model.Artifact, GateResult) {
	if !scriptRequested {
		return artifact, GateResult{}
	}

	var note string
	switch {
	case !issue.IsBug():
		note = noteNotBug
	case !issue.HasStepsToReproduce():
		note = noteMissingSteps
	default:
		return artifact, GateResult{}
	}

	notes := make([]string, 0, len(artifact.Automation.Notes)+1)
	notes = append(notes, artifact.Automation.Notes...)
	notes = append(notes, note)

	artifact.Automation = model.Automation{
		Included:             false,
		Target:               nil,
		Language:             nil,
		Script:               "",
		SelectorsAndMappings: []string{},
		Notes:                notes,
	}

	return artifact, GateResult{
		Overridden:   true,
		MissingSteps: note == noteMissingSteps,
	}
}
