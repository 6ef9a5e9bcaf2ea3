// Package export renders validated artifacts into Xray import files.
//
// Content is always rebuilt from the validated scenarios. The files the model
// reported about itself are only consulted for their filenames.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"clawcraft.app/relay/internal/model"
)

const testTypeManual = "Manual"

var csvHeader = []string{
	"IssueKey",
	"RequirementKey",
	"TestType",
	"ScenarioType",
	"Feature",
	"ScenarioTitle",
	"Priority",
	"Labels",
	"Gherkin",
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "when": {}, "then": {}, "user": {}, "story": {}, "bug": {},
	"issue": {}, "should": {}, "cannot": {}, "error": {},
}

var nonKeywordChars = regexp.MustCompile(`[^a-z0-9\s-]`)

const maxKeywords = 3

// File is one rendered export ready for upload.
type File struct {
	Filename    string
	ContentType string
	Content     string
}

// Files is the pair of exports produced for one artifact.
type Files struct {
	CSV  File
	JSON File
}

// All returns the files in upload order.
func (f Files) All() []File {
	return []File{f.CSV, f.JSON}
}

type flatScenario struct {
	scenarioType model.ScenarioType
	model.Scenario
}

// Build renders the CSV and JSON exports. It is deterministic: the same
// artifact always yields byte-identical output.
func Build(artifact model.Artifact) (Files, error) {
	jsonText, err := BuildJSON(artifact)
	if err != nil {
		return Files{}, err
	}

	return Files{
		CSV: File{
			Filename:    filename(artifact, model.ContentTypeCSV, ".csv"),
			ContentType: model.ContentTypeCSV,
			Content:     BuildCSV(artifact),
		},
		JSON: File{
			Filename:    filename(artifact, model.ContentTypeJSON, ".json"),
			ContentType: model.ContentTypeJSON,
			Content:     jsonText,
		},
	}, nil
}

func filename(artifact model.Artifact, contentType, ext string) string {
	if name := artifact.PreferredFilename(contentType); name != "" {
		return name
	}
	return artifact.IssueKey + "_xray_tests" + ext
}

// BuildCSV renders one row per scenario, Positive then Negative then Edge.
// Every data field is quoted with embedded quotes doubled; the header is not.
func BuildCSV(artifact model.Artifact) string {
	labels := strings.Join(Labels(artifact.IssueType, artifact.Summary), ";")

	lines := make([]string, 0, 1+scenarioCount(artifact))
	lines = append(lines, strings.Join(csvHeader, ","))

	for _, s := range flatten(artifact) {
		row := []string{
			artifact.IssueKey,
			artifact.IssueKey,
			testTypeManual,
			string(s.scenarioType),
			artifact.Gherkin.Feature,
			s.Title,
			string(s.Priority),
			labels,
			s.Gherkin,
		}
		for i, v := range row {
			row[i] = QuoteCSV(v)
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return strings.Join(lines, "\n")
}

// QuoteCSV wraps v in double quotes, doubling any quote inside it.
func QuoteCSV(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

type xrayDocument struct {
	RequirementKey string     `json:"requirementKey"`
	Tests          []xrayTest `json:"tests"`
}

type xrayTest struct {
	TestType     string   `json:"testType"`
	ScenarioType string   `json:"scenarioType"`
	Feature      string   `json:"feature"`
	Title        string   `json:"title"`
	Priority     string   `json:"priority"`
	Labels       []string `json:"labels"`
	Gherkin      string   `json:"gherkin"`
}

// BuildJSON renders the structured-record export, indented by two spaces.
func BuildJSON(artifact model.Artifact) (string, error) {
	labels := Labels(artifact.IssueType, artifact.Summary)

	doc := xrayDocument{
		RequirementKey: artifact.IssueKey,
		Tests:          make([]xrayTest, 0, scenarioCount(artifact)),
	}
	for _, s := range flatten(artifact) {
		doc.Tests = append(doc.Tests, xrayTest{
			TestType:     testTypeManual,
			ScenarioType: string(s.scenarioType),
			Feature:      artifact.Gherkin.Feature,
			Title:        s.Title,
			Priority:     string(s.Priority),
			Labels:       labels,
			Gherkin:      s.Gherkin,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding xray json: %w", err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Labels returns the fixed labels, the lower-cased issue type and up to three
// keywords from the summary.
func Labels(issueType, summary string) []string {
	labels := []string{"pt-claw", "clawcraft", strings.ToLower(issueType)}
	return append(labels, Keywords(summary)...)
}

// Keywords picks at most three distinct summary tokens that are at least three
// characters long and not stopwords, in first-seen order.
func Keywords(summary string) []string {
	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(summary), " ")

	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	for _, token := range strings.Fields(cleaned) {
		if len(keywords) == maxKeywords {
			break
		}
		if len(token) < 3 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}
	return keywords
}

func flatten(artifact model.Artifact) []flatScenario {
	out := make([]flatScenario, 0, scenarioCount(artifact))
	groups := []struct {
		kind      model.ScenarioType
		scenarios []model.Scenario
	}{
		{model.ScenarioPositive, artifact.Gherkin.Positive},
		{model.ScenarioNegative, artifact.Gherkin.Negative},
		{model.ScenarioEdge, artifact.Gherkin.Edge},
	}
	for _, g := range groups {
		for _, s := range g.scenarios {
			out = append(out, flatScenario{scenarioType: g.kind, Scenario: s})
		}
	}
	return out
}

func scenarioCount(artifact model.Artifact) int {
	p, n, e := artifact.ScenarioCounts()
	return p + n + e
}
