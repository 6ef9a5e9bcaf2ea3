package extract

import (
	"regexp"
	"strings"

	"clawcraft.app/relay/internal/model"
)

type section int

const (
	sectionAcceptanceCriteria section = iota
	sectionStepsToReproduce
	sectionExpectedResult
	sectionActualResult
	sectionEnvironment
	sectionCount
)

// headingAliases lists, per section, the normalized heading texts that open it.
var headingAliases = [sectionCount][]string{
	sectionAcceptanceCriteria: {"acceptance criteria", "ac"},
	sectionStepsToReproduce:   {"steps to reproduce", "str", "repro steps", "steps"},
	sectionExpectedResult:     {"expected result", "expected behavior", "expected"},
	sectionActualResult:       {"actual result", "actual behavior", "actual"},
	sectionEnvironment:        {"environment", "env", "test environment"},
}

var (
	lineBreak       = regexp.MustCompile(`\r?\n`)
	leadingMarkers  = regexp.MustCompile(`^[#*\-\d.\s]+`)
	trailingMarkers = regexp.MustCompile(`[:\-\s]+$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Sections splits a plain-text issue description into its named sections.
//
// A section starts after the first line whose normalized text equals one of its
// aliases (or starts with "<alias> ") and runs until the next line that is a
// heading of any section, or the end of the text. Sections without a heading
// come back empty.
func Sections(text string) model.Sections {
	var (
		body    [sectionCount][]string
		started [sectionCount]bool
		active  []section
	)

	for _, line := range lineBreak.Split(text, -1) {
		matched := headingsOf(line)
		if len(matched) == 0 {
			for _, s := range active {
				body[s] = append(body[s], line)
			}
			continue
		}

		active = active[:0]
		for _, s := range matched {
			if !started[s] {
				started[s] = true
				active = append(active, s)
			}
		}
	}

	joined := func(s section) string {
		return strings.TrimSpace(strings.Join(body[s], "\n"))
	}

	return model.Sections{
		AcceptanceCriteria: joined(sectionAcceptanceCriteria),
		StepsToReproduce:   joined(sectionStepsToReproduce),
		ExpectedResult:     joined(sectionExpectedResult),
		ActualResult:       joined(sectionActualResult),
		Environment:        joined(sectionEnvironment),
	}
}

// headingsOf returns every section whose heading the line matches.
func headingsOf(line string) []section {
	normalized := normalizeHeading(line)
	if normalized == "" {
		return nil
	}

	var matched []section
	for s := section(0); s < sectionCount; s++ {
		for _, alias := range headingAliases[s] {
			if normalized == alias || strings.HasPrefix(normalized, alias+" ") {
				matched = append(matched, s)
				break
			}
		}
	}
	return matched
}

// normalizeHeading strips list/markdown markers and a trailing colon or dash,
// collapses whitespace and lowercases.
func normalizeHeading(line string) string {
	s := strings.ToLower(line)
	s = leadingMarkers.ReplaceAllString(s, "")
	s = trailingMarkers.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
