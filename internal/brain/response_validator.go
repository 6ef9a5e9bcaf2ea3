package brain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"clawcraft.app/relay/internal/model"
)

var (
	// ErrInvalidJSON means the model output is not parseable JSON at all.
	ErrInvalidJSON = errors.New("model output is not valid JSON")
	// ErrSchemaViolation means the output parsed but does not match the artifact contract.
	ErrSchemaViolation = errors.New("model output violates schema")
)

var codeFence = regexp.MustCompile("(?is)^```(?:json)?\\s*(.*?)\\s*```$")

// UnwrapCodeFence strips a ```json ... ``` (or bare ```) wrapper when it encloses
// the whole trimmed string.
func UnwrapCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ValidateResponse parses raw model output into an Artifact. Anything other than
// an exact match of the contract is rejected: unknown keys, missing keys, nulls
// where a value is required, values outside the enumerations, and scenario
// groups with fewer than five entries.
//
// Errors wrap ErrInvalidJSON or ErrSchemaViolation and name the first violation.
func ValidateResponse(raw string) (*model.Artifact, error) {
	cleaned := UnwrapCodeFence(raw)

	var probe any
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err.Error())
	}

	// encoding/json matches field names case-insensitively, so key sets are
	// compared byte for byte before decoding.
	if err := checkKeys(probe); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()

	var w wireArtifact
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, err.Error())
	}

	artifact, err := w.toArtifact()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, err.Error())
	}
	return artifact, nil
}

var (
	artifactKeys   = keySet("issueKey", "issueType", "summary", "assumptions", "gherkin", "files", "automation")
	gherkinKeys    = keySet("feature", "positive", "negative", "edge")
	scenarioKeys   = keySet("title", "priority", "gherkin")
	fileKeys       = keySet("filename", "contentType", "content")
	automationKeys = keySet("included", "target", "language", "script", "selectors_and_mappings", "notes")
)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// checkKeys rejects any object key that is not exactly one of the contract keys
// for its level. Values of the wrong type are left to the decoder.
func checkKeys(doc any) error {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	if err := exactKeys("", root, artifactKeys); err != nil {
		return err
	}

	if gherkin, ok := root["gherkin"].(map[string]any); ok {
		if err := exactKeys("gherkin", gherkin, gherkinKeys); err != nil {
			return err
		}
		for _, group := range []string{"positive", "negative", "edge"} {
			if err := exactKeysEach("gherkin."+group, gherkin[group], scenarioKeys); err != nil {
				return err
			}
		}
	}

	if err := exactKeysEach("files", root["files"], fileKeys); err != nil {
		return err
	}

	if automation, ok := root["automation"].(map[string]any); ok {
		return exactKeys("automation", automation, automationKeys)
	}
	return nil
}

func exactKeysEach(path string, v any, allowed map[string]bool) error {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	for i, item := range items {
		if obj, ok := item.(map[string]any); ok {
			if err := exactKeys(fmt.Sprintf("%s[%d]", path, i), obj, allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

func exactKeys(path string, obj map[string]any, allowed map[string]bool) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if allowed[k] {
			continue
		}
		if path == "" {
			return fmt.Errorf("unknown key %q", k)
		}
		return fmt.Errorf("%s: unknown key %q", path, k)
	}
	return nil
}

// Wire types mirror model.Artifact with pointer fields so that a missing or
// null key can be told apart from an empty value.

type wireArtifact struct {
	IssueKey    *string         `json:"issueKey"`
	IssueType   *string         `json:"issueType"`
	Summary     *string         `json:"summary"`
	Assumptions *[]*string      `json:"assumptions"`
	Gherkin     *wireGherkin    `json:"gherkin"`
	Files       *[]*wireFile    `json:"files"`
	Automation  *wireAutomation `json:"automation"`
}

type wireGherkin struct {
	Feature  *string          `json:"feature"`
	Positive *[]*wireScenario `json:"positive"`
	Negative *[]*wireScenario `json:"negative"`
	Edge     *[]*wireScenario `json:"edge"`
}

type wireScenario struct {
	Title    *string `json:"title"`
	Priority *string `json:"priority"`
	Gherkin  *string `json:"gherkin"`
}

type wireFile struct {
	Filename    *string `json:"filename"`
	ContentType *string `json:"contentType"`
	Content     *string `json:"content"`
}

type wireAutomation struct {
	Included             *bool           `json:"included"`
	Target               json.RawMessage `json:"target"`
	Language             json.RawMessage `json:"language"`
	Script               *string         `json:"script"`
	SelectorsAndMappings *[]*string      `json:"selectors_and_mappings"`
	Notes                *[]*string      `json:"notes"`
}

func (w wireArtifact) toArtifact() (*model.Artifact, error) {
	issueKey, err := nonEmpty("issueKey", w.IssueKey)
	if err != nil {
		return nil, err
	}
	issueType, err := nonEmpty("issueType", w.IssueType)
	if err != nil {
		return nil, err
	}
	summary, err := nonEmpty("summary", w.Summary)
	if err != nil {
		return nil, err
	}
	assumptions, err := stringList("assumptions", w.Assumptions)
	if err != nil {
		return nil, err
	}

	if w.Gherkin == nil {
		return nil, missing("gherkin")
	}
	gherkin, err := w.Gherkin.toBundle()
	if err != nil {
		return nil, err
	}

	files, err := toFiles(w.Files)
	if err != nil {
		return nil, err
	}

	if w.Automation == nil {
		return nil, missing("automation")
	}
	automation, err := w.Automation.toAutomation()
	if err != nil {
		return nil, err
	}

	return &model.Artifact{
		IssueKey:    issueKey,
		IssueType:   issueType,
		Summary:     summary,
		Assumptions: assumptions,
		Gherkin:     gherkin,
		Files:       files,
		Automation:  automation,
	}, nil
}

func (w wireGherkin) toBundle() (model.GherkinBundle, error) {
	feature, err := nonEmpty("gherkin.feature", w.Feature)
	if err != nil {
		return model.GherkinBundle{}, err
	}
	positive, err := toScenarios("gherkin.positive", w.Positive)
	if err != nil {
		return model.GherkinBundle{}, err
	}
	negative, err := toScenarios("gherkin.negative", w.Negative)
	if err != nil {
		return model.GherkinBundle{}, err
	}
	edge, err := toScenarios("gherkin.edge", w.Edge)
	if err != nil {
		return model.GherkinBundle{}, err
	}

	return model.GherkinBundle{
		Feature:  feature,
		Positive: positive,
		Negative: negative,
		Edge:     edge,
	}, nil
}

func toScenarios(path string, list *[]*wireScenario) ([]model.Scenario, error) {
	if list == nil {
		return nil, missing(path)
	}
	if len(*list) < model.MinScenariosPerGroup {
		return nil, fmt.Errorf("%s: expected at least %d scenarios, got %d", path, model.MinScenariosPerGroup, len(*list))
	}

	scenarios := make([]model.Scenario, 0, len(*list))
	for i, s := range *list {
		at := fmt.Sprintf("%s[%d]", path, i)
		if s == nil {
			return nil, missing(at)
		}
		title, err := nonEmpty(at+".title", s.Title)
		if err != nil {
			return nil, err
		}
		priority, err := oneOf(at+".priority", s.Priority,
			string(model.PriorityHigh), string(model.PriorityMedium), string(model.PriorityLow))
		if err != nil {
			return nil, err
		}
		body, err := nonEmpty(at+".gherkin", s.Gherkin)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, model.Scenario{
			Title:    title,
			Priority: model.Priority(priority),
			Gherkin:  body,
		})
	}
	return scenarios, nil
}

func toFiles(list *[]*wireFile) ([]model.ExportFile, error) {
	if list == nil {
		return nil, missing("files")
	}
	if len(*list) < model.MinExportFiles {
		return nil, fmt.Errorf("files: expected at least %d files, got %d", model.MinExportFiles, len(*list))
	}

	files := make([]model.ExportFile, 0, len(*list))
	for i, f := range *list {
		at := fmt.Sprintf("files[%d]", i)
		if f == nil {
			return nil, missing(at)
		}
		filename, err := nonEmpty(at+".filename", f.Filename)
		if err != nil {
			return nil, err
		}
		contentType, err := oneOf(at+".contentType", f.ContentType, model.ContentTypeCSV, model.ContentTypeJSON)
		if err != nil {
			return nil, err
		}
		content, err := nonEmpty(at+".content", f.Content)
		if err != nil {
			return nil, err
		}
		files = append(files, model.ExportFile{
			Filename:    filename,
			ContentType: contentType,
			Content:     content,
		})
	}
	return files, nil
}

func (w wireAutomation) toAutomation() (model.Automation, error) {
	if w.Included == nil {
		return model.Automation{}, missing("automation.included")
	}
	target, err := nullableOneOf("automation.target", w.Target,
		string(model.TargetPlaywright), string(model.TargetAppium))
	if err != nil {
		return model.Automation{}, err
	}
	language, err := nullableOneOf("automation.language", w.Language,
		string(model.LanguageTypeScript), string(model.LanguagePython))
	if err != nil {
		return model.Automation{}, err
	}
	if w.Script == nil {
		return model.Automation{}, missing("automation.script")
	}
	selectors, err := stringList("automation.selectors_and_mappings", w.SelectorsAndMappings)
	if err != nil {
		return model.Automation{}, err
	}
	notes, err := stringList("automation.notes", w.Notes)
	if err != nil {
		return model.Automation{}, err
	}

	a := model.Automation{
		Included:             *w.Included,
		Script:               *w.Script,
		SelectorsAndMappings: selectors,
		Notes:                notes,
	}
	if target != nil {
		t := model.AutomationTarget(*target)
		a.Target = &t
	}
	if language != nil {
		l := model.AutomationLanguage(*language)
		a.Language = &l
	}
	return a, nil
}

func missing(path string) error {
	return fmt.Errorf("%s: required", path)
}

func nonEmpty(path string, v *string) (string, error) {
	if v == nil {
		return "", missing(path)
	}
	if *v == "" {
		return "", fmt.Errorf("%s: must not be empty", path)
	}
	return *v, nil
}

func oneOf(path string, v *string, allowed ...string) (string, error) {
	if v == nil {
		return "", missing(path)
	}
	for _, a := range allowed {
		if *v == a {
			return *v, nil
		}
	}
	return "", fmt.Errorf("%s: %q is not one of %s", path, *v, strings.Join(allowed, ", "))
}

// nullableOneOf requires the key to be present; an explicit null is allowed.
func nullableOneOf(path string, raw json.RawMessage, allowed ...string) (*string, error) {
	if len(raw) == 0 {
		return nil, missing(path)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s: expected string or null", path)
	}
	v, err := oneOf(path, &s, allowed...)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func stringList(path string, list *[]*string) ([]string, error) {
	if list == nil {
		return nil, missing(path)
	}
	out := make([]string, 0, len(*list))
	for i, s := range *list {
		if s == nil {
			return nil, fmt.Errorf("%s[%d]: expected string, got null", path, i)
		}
		out = append(out, *s)
	}
	return out, nil
}
