package extract

import (
	"bytes"
	"encoding/json"
	"html"
	"regexp"
	"strings"
)

// Node is one element of a rich-text document tree (Atlassian Document Format).
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// UnmarshalJSON also accepts a bare string as a text node.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = Node{Type: "text", Text: s}
		return nil
	}

	type plain Node
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*n = Node(p)
	return nil
}

// FlattenRichText renders a document tree as plain text. Paragraphs, headings and
// lists end with a newline, list items are prefixed with "- ", and unknown node
// types contribute only their children.
func FlattenRichText(node Node) string {
	switch node.Type {
	case "text":
		return node.Text
	case "hardBreak":
		return "\n"
	}

	var b strings.Builder
	for _, child := range node.Content {
		b.WriteString(FlattenRichText(child))
	}
	children := b.String()

	switch node.Type {
	case "paragraph", "heading", "bulletList", "orderedList":
		return children + "\n"
	case "listItem":
		return "- " + children + "\n"
	default:
		return children
	}
}

// FlattenRichTextJSON decodes and flattens a raw document. A JSON string is
// returned as-is; null, absent or malformed input yields "".
func FlattenRichTextJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return ""
	}
	return FlattenRichText(node)
}

var (
	htmlBreak     = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlParaClose = regexp.MustCompile(`(?i)</p>`)
	htmlTag       = regexp.MustCompile(`<[^>]+>`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
)

// StripHTML converts a rendered HTML description to plain text: <br> and </p>
// become newlines, remaining tags are dropped, and runs of 3+ newlines collapse to 2.
func StripHTML(s string) string {
	s = htmlBreak.ReplaceAllString(s, "\n")
	s = htmlParaClose.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
