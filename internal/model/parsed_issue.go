package model

import "strings"

// Sections are the structured fields recovered from a free-form issue description.
// Any of them may be empty; a missing heading is normal.
type Sections struct {
	AcceptanceCriteria string
	StepsToReproduce   string
	ExpectedResult     string
	ActualResult       string
	Environment        string
}

// ParsedIssue is the normalized, read-only view of a tracked issue built once per command.
type ParsedIssue struct {
	Key         string
	IssueType   string
	Summary     string
	Description string
	Sections
}

// IsBug reports whether the tracker type name denotes a bug ("Bug", "Production bug", ...).
func (i ParsedIssue) IsBug() bool {
	return strings.Contains(strings.ToLower(i.IssueType), "bug")
}

// IsStory reports whether the tracker type name denotes a user story.
func (i ParsedIssue) IsStory() bool {
	return strings.Contains(strings.ToLower(i.IssueType), "story")
}

// IsSupported reports whether scenarios can be generated for this issue type.
func (i ParsedIssue) IsSupported() bool {
	return i.IsBug() || i.IsStory()
}

// HasStepsToReproduce reports whether the description carried non-blank repro steps.
func (i ParsedIssue) HasStepsToReproduce() bool {
	return strings.TrimSpace(i.StepsToReproduce) != ""
}
