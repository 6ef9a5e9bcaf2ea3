package model

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

type ScenarioType string

const (
	ScenarioPositive ScenarioType = "Positive"
	ScenarioNegative ScenarioType = "Negative"
	ScenarioEdge     ScenarioType = "Edge"
)

type AutomationTarget string

const (
	TargetPlaywright AutomationTarget = "playwright"
	TargetAppium     AutomationTarget = "appium"
)

type AutomationLanguage string

const (
	LanguageTypeScript AutomationLanguage = "TypeScript"
	LanguagePython     AutomationLanguage = "Python"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeJSON = "application/json"
)

// MinScenariosPerGroup is enforced on every validated artifact, not only requested in the prompt.
const MinScenariosPerGroup = 5

// MinExportFiles is the number of self-described export files the model must return.
const MinExportFiles = 2

// Artifact is the model output after it passed validation. It is only ever built
// by the response validator and is discarded after delivery.
type Artifact struct {
	IssueKey    string        `json:"issueKey"`
	IssueType   string        `json:"issueType"`
	Summary     string        `json:"summary"`
	Assumptions []string      `json:"assumptions"`
	Gherkin     GherkinBundle `json:"gherkin"`
	Files       []ExportFile  `json:"files"`
	Automation  Automation    `json:"automation"`
}

type GherkinBundle struct {
	Feature  string     `json:"feature"`
	Positive []Scenario `json:"positive" jsonschema:"minItems=5"`
	Negative []Scenario `json:"negative" jsonschema:"minItems=5"`
	Edge     []Scenario `json:"edge" jsonschema:"minItems=5"`
}

type Scenario struct {
	Title    string   `json:"title" jsonschema_description:"<ISSUE_KEY> - <short intent> - (<Positive|Negative|Edge>)"`
	Priority Priority `json:"priority" jsonschema:"enum=High,enum=Medium,enum=Low"`
	Gherkin  string   `json:"gherkin"`
}

type ExportFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType" jsonschema:"enum=text/csv,enum=application/json"`
	Content     string `json:"content"`
}

type Automation struct {
	Included             bool                `json:"included"`
	Target               *AutomationTarget   `json:"target" jsonschema:"enum=playwright,enum=appium"`
	Language             *AutomationLanguage `json:"language" jsonschema:"enum=TypeScript,enum=Python"`
	Script               string              `json:"script"`
	SelectorsAndMappings []string            `json:"selectors_and_mappings"`
	Notes                []string            `json:"notes"`
}

// ScenarioCounts returns the number of scenarios per group.
func (a Artifact) ScenarioCounts() (positive, negative, edge int) {
	return len(a.Gherkin.Positive), len(a.Gherkin.Negative), len(a.Gherkin.Edge)
}

// PreferredFilename returns the filename the model chose for the given content type, if any.
func (a Artifact) PreferredFilename(contentType string) string {
	for _, f := range a.Files {
		if f.ContentType == contentType && f.Filename != "" {
			return f.Filename
		}
	}
	return ""
}
