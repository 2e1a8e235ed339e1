// Package document accumulates routed entries and renders them as markdown text.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fabiomolinar/git2prompt/internal/routing"
	"github.com/fabiomolinar/git2prompt/internal/transform"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

// ErrFinalized reports an append to a document that has already been rendered.
var ErrFinalized = errors.New("document already rendered")

const (
	// MergedName replaces the repository name in merge mode file names.
	MergedName = "all_repos"

	repositoryTitleFormat       = "# Repository: %s"
	repositoryBucketTitleFormat = "# Repository: %s (%s)"
	mergedTitle                 = "# Merged Repository Contents"
	mergedBucketTitleFormat     = "# Merged Repository Contents (%s)"
	repositorySectionFormat     = "## Repository: %s"
	fileHeaderFormat            = "## File: %s"
	mergedFileHeaderFormat      = "### File: %s"
	defaultFileNameFormat       = "%s_processed.md"
	bucketFileNameFormat        = "%s_%s_processed.md"
	finalizedAppendFormat       = "%w: %s"

	minimumFenceLength         = 3
	minimumMarkdownFenceLength = 5
	fenceCharacter             = "`"
)

// Options control rendering.
type Options struct {
	NoHeaders bool
	Merge     bool
}

// Entry is one file inside a document.
type Entry struct {
	Repository string
	Path       string
	Content    transform.Content
}

// Document is an append-only ordered list of entries. Rendering is terminal.
type Document struct {
	key      routing.Key
	options  Options
	entries  []Entry
	rendered bool
	text     string
}

// New creates an empty document.
func New(key routing.Key, options Options) *Document {
	return &Document{key: key, options: options}
}

// Key returns the routing key.
func (document *Document) Key() routing.Key {
	return document.key
}

// Entries returns a copy of the appended entries.
func (document *Document) Entries() []Entry {
	return append([]Entry(nil), document.entries...)
}

// Len returns the number of entries.
func (document *Document) Len() int {
	return len(document.entries)
}

// Append adds an entry. It fails with ErrFinalized after Render.
func (document *Document) Append(entry Entry) error {
	if document.rendered {
		return fmt.Errorf(finalizedAppendFormat, ErrFinalized, document.FileName())
	}
	document.entries = append(document.entries, entry)
	return nil
}

// Title returns the first line of the rendered document.
func (document *Document) Title() string {
	switch {
	case document.options.Merge && document.key.IsDefault():
		return mergedTitle
	case document.options.Merge:
		return fmt.Sprintf(mergedBucketTitleFormat, document.key.Bucket)
	case document.key.IsDefault():
		return fmt.Sprintf(repositoryTitleFormat, document.key.Repository)
	default:
		return fmt.Sprintf(repositoryBucketTitleFormat, document.key.Repository, document.key.Bucket)
	}
}

// FileName returns the output file name for the document.
func (document *Document) FileName() string {
	name := document.key.Repository
	if document.options.Merge {
		name = MergedName
	}
	if document.key.IsDefault() {
		return fmt.Sprintf(defaultFileNameFormat, name)
	}
	return fmt.Sprintf(bucketFileNameFormat, name, utils.SafeFileComponent(document.key.Bucket))
}

// Render finalizes the document and returns its text. Later calls return the same text.
func (document *Document) Render() string {
	if document.rendered {
		return document.text
	}
	var builder strings.Builder
	builder.WriteString(document.Title())
	builder.WriteString("\n\n")

	currentRepository := ""
	for index, entry := range document.entries {
		if document.options.Merge && (index == 0 || entry.Repository != currentRepository) {
			builder.WriteString(fmt.Sprintf(repositorySectionFormat, entry.Repository))
			builder.WriteString("\n\n")
			currentRepository = entry.Repository
		}
		writeEntry(&builder, entry, document.options)
	}

	document.text = builder.String()
	document.rendered = true
	return document.text
}

func writeEntry(builder *strings.Builder, entry Entry, options Options) {
	if !options.NoHeaders {
		headerFormat := fileHeaderFormat
		if options.Merge {
			headerFormat = mergedFileHeaderFormat
		}
		builder.WriteString(fmt.Sprintf(headerFormat, entry.Path))
		builder.WriteString("\n")
	}
	fence := Fence(entry.Content.Text, entry.Content.Markdown)
	builder.WriteString(fence)
	builder.WriteString(entry.Content.LanguageTag)
	builder.WriteString("\n")
	builder.WriteString(entry.Content.Text)
	if entry.Content.Text != "" && !strings.HasSuffix(entry.Content.Text, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString(fence)
	builder.WriteString("\n\n")
}

// Fence returns a backtick fence longer than any backtick run inside text.
func Fence(text string, markdown bool) string {
	length := minimumFenceLength
	if markdown {
		length = minimumMarkdownFenceLength
	}
	if longestRun := longestBacktickRun(text); longestRun >= length {
		length = longestRun + 1
	}
	return strings.Repeat(fenceCharacter, length)
}

func longestBacktickRun(text string) int {
	longest, current := 0, 0
	for index := 0; index < len(text); index++ {
		if text[index] == '`' {
			current++
			if current > longest {
				longest = current
			}
			continue
		}
		current = 0
	}
	return longest
}
