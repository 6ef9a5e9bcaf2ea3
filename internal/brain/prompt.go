package brain

import (
	"strconv"
	"strings"

	"clawcraft.app/relay/internal/model"
)

const promptVersion = "v1"

// Prompt is the system/user instruction pair sent to the model.
type Prompt struct {
	System string
	User   string
}

type PromptInput struct {
	Issue           model.ParsedIssue
	Platform        model.PlatformHint
	ScriptRequested bool
}

// BuildPrompt renders the generation prompt. It is pure: the same input always
// yields byte-identical text.
func BuildPrompt(in PromptInput) Prompt {
	var sb strings.Builder

	sb.WriteString(generationContext)
	sb.WriteString("\n")
	sb.WriteString(generationTasks)
	sb.WriteString("\n")
	sb.WriteString(generationQualityRules)
	sb.WriteString("\n")
	sb.WriteString(generationOutputSchema)
	sb.WriteString("\n")
	sb.WriteString(generationExportRules)
	sb.WriteString("\nNow process this issue input:\n\n")

	writeIssueBlock(&sb, in)

	return Prompt{
		System: generationSystemPrompt,
		User:   sb.String(),
	}
}

func writeIssueBlock(sb *strings.Builder, in PromptInput) {
	field := func(name, value string) {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	sb.WriteString("<ISSUE>\n")
	field("issueKey", in.Issue.Key)
	field("issuetype.name", in.Issue.IssueType)
	field("summary", in.Issue.Summary)
	field("description", in.Issue.Description)
	field("acceptanceCriteria", in.Issue.AcceptanceCriteria)
	field("stepsToReproduce", in.Issue.StepsToReproduce)
	field("expectedResult", in.Issue.ExpectedResult)
	field("actualResult", in.Issue.ActualResult)
	field("environment", in.Issue.Environment)
	field("platformHint", string(in.Platform))
	field("userRequestedGenerateScript", strconv.FormatBool(in.ScriptRequested))
	sb.WriteString("</ISSUE>")
}

// repairInstruction wraps invalid model output for the single repair call.
func repairInstruction(invalid string) string {
	return "Return ONLY valid JSON matching the schema. Here is the invalid output: " + invalid
}

const generationSystemPrompt = `You are ClawCraft QA, an expert QA analyst and test automation engineer. Return ONLY valid JSON matching the required schema. Do not include markdown.`

const generationContext = `Context:
- The issue tracker is the source of truth.
- Xray Cloud will be used to import Test entities.
- Slack command is /clawcraft <ISSUE_KEY> [generate script]
- Always trust the tracker's issuetype.name to decide whether it's a User Story or Bug.
`

const generationTasks = `Your tasks:
1) If issuetype.name indicates User Story or Bug:
   - Generate Positive, Negative, and Edge test cases in valid Gherkin.
   - Produce TWO export payloads: CSV text and JSON text.
   - The tests must be suitable to create Xray Cloud Test entities linked back to the Requirement (story/bug).
2) Only if ALL conditions are true:
   - issuetype.name is Bug (or equivalent)
   - userRequestedGenerateScript=true
   - the bug includes clear steps to reproduce (stepsToReproduce is not empty)
   => generate an automation script:
      - Playwright (TypeScript) for web when platformHint=WEB
      - Appium (Python) for mobile when platformHint=MOBILE
      - If platformHint is UNKNOWN, infer from text; if still unclear, default to Playwright TypeScript and state the assumption.
   Otherwise set automation.included=false, target=null, language=null and script="".
`

const generationQualityRules = `Quality rules:
- Be faithful to the issue text; do not invent features.
- If info is missing, keep assumptions minimal and list them explicitly.
- Gherkin must use Feature/Scenario and Given/When/Then.
- Scenario titles must be stable: "<ISSUE_KEY> - <short intent> - (<Positive|Negative|Edge>)"
- Minimum coverage: at least 5 Positive, 5 Negative, 5 Edge scenarios.
- Tag each scenario with priority High/Medium/Low:
  - High: core path, auth, payments, data loss, security, crash
  - Medium: common alternate paths
  - Low: rare/cosmetic
`

const generationOutputSchema = `Output format (STRICT):
Return a single JSON object with exactly these keys and no others:

{
  "issueKey": "...",
  "issueType": "...",
  "summary": "...",
  "assumptions": ["..."],
  "gherkin": {
    "feature": "...",
    "positive": [{"title":"...","priority":"High|Medium|Low","gherkin":"..."}],
    "negative": [{"title":"...","priority":"High|Medium|Low","gherkin":"..."}],
    "edge": [{"title":"...","priority":"High|Medium|Low","gherkin":"..."}]
  },
  "files": [
    {
      "filename": "<ISSUE_KEY>_xray_tests.csv",
      "contentType": "text/csv",
      "content": "<CSV_TEXT>"
    },
    {
      "filename": "<ISSUE_KEY>_xray_tests.json",
      "contentType": "application/json",
      "content": "<JSON_TEXT>"
    }
  ],
  "automation": {
    "included": true|false,
    "target": "playwright"|"appium"|null,
    "language": "TypeScript"|"Python"|null,
    "script": "<FULL_SCRIPT_OR_EMPTY>",
    "selectors_and_mappings": ["..."],
    "notes": ["..."]
  }
}
`

const generationExportRules = `CSV rules:
- Use columns:
  IssueKey, RequirementKey, TestType, ScenarioType, Feature, ScenarioTitle, Priority, Labels, Gherkin
- RequirementKey must equal the issueKey.
- TestType must be "Manual".
- Labels must include: "pt-claw", "clawcraft", plus issueType lowercased, plus up to 3 keywords inferred from summary.

JSON rules:
- The JSON inside <ISSUE_KEY>_xray_tests.json must be:
  {
    "requirementKey": "<ISSUE_KEY>",
    "tests": [
      {
        "testType": "Manual",
        "scenarioType": "Positive|Negative|Edge",
        "feature": "...",
        "title": "...",
        "priority": "High|Medium|Low",
        "labels": ["..."],
        "gherkin": "..."
      }
    ]
  }
`
