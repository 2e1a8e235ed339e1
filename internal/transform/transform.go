package transform

import (
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// Content is the rendered form of one file.
type Content struct {
	Text        string
	LanguageTag string
	Markdown    bool
	// Binary flags content that looks binary; it is emitted unchanged.
	Binary bool
}

// Transform prepares raw bytes for a document entry. The language comes from the file's base name
// and extension. Markdown headings are demoted, binary-looking data passes through untouched and is
// flagged.
func Transform(baseName string, extension string, data []byte) Content {
	content := Content{
		Text:        string(data),
		LanguageTag: LanguageTag(baseName, extension),
	}
	if utils.IsBinary(data) {
		content.Binary = true
		return content
	}
	if content.LanguageTag == markdownLanguage {
		content.Markdown = true
		content.Text = DemoteMarkdown(content.Text)
	}
	return content
}
