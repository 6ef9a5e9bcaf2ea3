package brain_test

import (
	"encoding/json"
	"fmt"
)

func scenarioList(key, kind string, n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{
			"title":    fmt.Sprintf("%s - %s path %d - (%s)", key, kind, i+1, kind),
			"priority": "High",
			"gherkin":  fmt.Sprintf("Scenario: %s %d\n  Given a state\n  When an action\n  Then an outcome", kind, i+1),
		}
	}
	return out
}

// artifactDoc returns a mutable document that passes validation.
func artifactDoc(key, issueType string) map[string]any {
	return map[string]any{
		"issueKey":    key,
		"issueType":   issueType,
		"summary":     "Login fails after password reset",
		"assumptions": []any{"Staging data is available"},
		"gherkin": map[string]any{
			"feature":  "Login",
			"positive": scenarioList(key, "Positive", 5),
			"negative": scenarioList(key, "Negative", 5),
			"edge":     scenarioList(key, "Edge", 5),
		},
		"files": []any{
			map[string]any{"filename": key + "_xray_tests.csv", "contentType": "text/csv", "content": "a,b"},
			map[string]any{"filename": key + "_xray_tests.json", "contentType": "application/json", "content": "{}"},
		},
		"automation": map[string]any{
			"included":               true,
			"target":                 "playwright",
			"language":               "TypeScript",
			"script":                 "test('login', async () => {})",
			"selectors_and_mappings": []any{"#login -> login button"},
			"notes":                  []any{"Uses staging credentials"},
		},
	}
}

func encode(doc any) string {
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func sub(doc map[string]any, key string) map[string]any {
	return doc[key].(map[string]any)
}
