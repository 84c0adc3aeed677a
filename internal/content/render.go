package content

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// Markdown formats an insight card: the companion message, the quoted item
// and its attribution.
func Markdown(message string, item Item) string {
	var b strings.Builder
	if message != "" {
		b.WriteString(message)
		b.WriteString("\n\n")
	}
	for _, line := range strings.Split(item.Text, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	if item.Source != "" {
		b.WriteString("\n*")
		b.WriteString(item.Source)
		b.WriteString("*\n")
	}
	return b.String()
}

// RenderHTML renders the card markdown to sanitized HTML.
func RenderHTML(message string, item Item) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(Markdown(message, item)), &buf); err != nil {
		return "", fmt.Errorf("render card: %w", err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}
