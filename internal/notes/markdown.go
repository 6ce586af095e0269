package notes

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// RenderMarkdown converts note content to sanitized HTML.
func RenderMarkdown(content string) template.HTML {
	if content == "" {
		return ""
	}
	// Parsers are stateful; build a fresh one per call.
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	raw := markdown.ToHTML([]byte(content), p, r)
	return template.HTML(sanitizer.SanitizeBytes(raw))
}
