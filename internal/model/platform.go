package model

import "strings"

type PlatformHint string

const (
	PlatformWeb     PlatformHint = "WEB"
	PlatformMobile  PlatformHint = "MOBILE"
	PlatformUnknown PlatformHint = "UNKNOWN"
)

var (
	mobileKeywords = []string{"ios", "android", "apk", "ipa", "device", "appium", "emulator", "simulator"}
	webKeywords    = []string{"browser", "url", "webpage", "playwright", "chrome", "firefox", "safari"}
)

// InferPlatformHint guesses the automation target from every textual issue field.
// Mobile keywords win over web keywords when both appear.
func InferPlatformHint(issue ParsedIssue) PlatformHint {
	hay := strings.ToLower(strings.Join([]string{
		issue.Summary,
		issue.Description,
		issue.StepsToReproduce,
		issue.Environment,
		issue.ExpectedResult,
		issue.ActualResult,
	}, " "))

	if containsAny(hay, mobileKeywords) {
		return PlatformMobile
	}
	if containsAny(hay, webKeywords) {
		return PlatformWeb
	}
	return PlatformUnknown
}

func containsAny(hay string, words []string) bool {
	for _, w := range words {
		if strings.Contains(hay, w) {
			return true
		}
	}
	return false
}
