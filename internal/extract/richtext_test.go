package extract_test

import (
	"encoding/json"

	"clawcraft.app/relay/internal/extract"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FlattenRichText", func() {
	It("renders paragraphs, headings, breaks and lists", func() {
		doc := extract.Node{Type: "doc", Content: []extract.Node{
			{Type: "heading", Content: []extract.Node{{Type: "text", Text: "Steps to Reproduce"}}},
			{Type: "orderedList", Content: []extract.Node{
				{Type: "listItem", Content: []extract.Node{{Type: "text", Text: "Open app"}}},
				{Type: "listItem", Content: []extract.Node{{Type: "text", Text: "Tap login"}}},
			}},
			{Type: "paragraph", Content: []extract.Node{
				{Type: "text", Text: "line one"},
				{Type: "hardBreak"},
				{Type: "text", Text: "line two"},
			}},
		}}

		Expect(extract.FlattenRichText(doc)).To(Equal(
			"Steps to Reproduce\n- Open app\n- Tap login\n\nline one\nline two\n",
		))
	})

	It("falls through unknown node types to their children", func() {
		node := extract.Node{Type: "panel", Content: []extract.Node{
			{Type: "mention", Content: []extract.Node{{Type: "text", Text: "@qa"}}},
			{Type: "text", Text: " please check"},
		}}
		Expect(extract.FlattenRichText(node)).To(Equal("@qa please check"))
	})
})

var _ = Describe("FlattenRichTextJSON", func() {
	DescribeTable("degrades gracefully",
		func(raw string, want string) {
			Expect(extract.FlattenRichTextJSON(json.RawMessage(raw))).To(Equal(want))
		},
		Entry("absent", "", ""),
		Entry("null", "null", ""),
		Entry("malformed", `{"type":`, ""),
		Entry("wrong shape", `{"type": 12}`, ""),
		Entry("plain string", `"already text"`, "already text"),
		Entry("document", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi"}]}]}`, "hi\n"),
		Entry("string child", `{"type":"paragraph","content":["raw"]}`, "raw\n"),
	)
})

var _ = Describe("StripHTML", func() {
	It("converts breaks and paragraphs to newlines and drops tags", func() {
		in := "<p>Steps:</p><p>1. open<br/>2. click</p><ul><li>x &amp; y</li></ul>"
		Expect(extract.StripHTML(in)).To(Equal("Steps:\n1. open\n2. click\nx & y"))
	})

	It("collapses three or more newlines to two", func() {
		Expect(extract.StripHTML("a<br><br><BR /><br>b")).To(Equal("a\n\nb"))
	})

	It("trims the result", func() {
		Expect(extract.StripHTML("  <p> hi </p>  ")).To(Equal("hi"))
	})
})
