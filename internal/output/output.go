// Package output writes rendered documents and reports what was written.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabiomolinar/git2prompt/internal/pipeline"
	"github.com/fabiomolinar/git2prompt/internal/tokenizer"
	"github.com/fabiomolinar/git2prompt/internal/utils"
)

const (
	outputDirectoryPermissions = 0o755
	outputFilePermissions      = 0o644

	createDirectoryFormat = "create output directory %s: %w"
	writeDocumentFormat   = "write %s: %w"
	countTokensFormat     = "count tokens for %s: %w"
)

// WrittenDocument describes one file produced by Write.
type WrittenDocument struct {
	Path    string
	Title   string
	Entries []string
	Bytes   int64
	Tokens  int
	Counted bool
}

// Summary aggregates the documents of a run.
type Summary struct {
	Documents    []WrittenDocument
	TotalEntries int
	TotalBytes   int64
	TotalTokens  int
	Model        string
}

// Writer stores documents in a directory. A nil counter disables token counting.
type Writer struct {
	directory string
	counter   tokenizer.Counter
	model     string
}

// NewWriter constructs a Writer.
func NewWriter(directory string, counter tokenizer.Counter, model string) Writer {
	return Writer{directory: directory, counter: counter, model: model}
}

// Write creates the output directory when missing and writes every document in order.
// Existing files with the same name are replaced.
func (writer Writer) Write(documents []pipeline.RenderedDocument) (Summary, error) {
	summary := Summary{}
	if writer.counter != nil {
		summary.Model = writer.model
	}
	if mkdirError := os.MkdirAll(writer.directory, outputDirectoryPermissions); mkdirError != nil {
		return summary, fmt.Errorf(createDirectoryFormat, writer.directory, mkdirError)
	}
	for _, rendered := range documents {
		destination := filepath.Join(writer.directory, rendered.FileName)
		data := []byte(rendered.Text)
		// #nosec G306
		if writeError := os.WriteFile(destination, data, outputFilePermissions); writeError != nil {
			return summary, fmt.Errorf(writeDocumentFormat, destination, writeError)
		}
		written := WrittenDocument{
			Path:    destination,
			Title:   rendered.Title,
			Entries: append([]string(nil), rendered.Paths...),
			Bytes:   int64(len(data)),
		}
		if writer.counter != nil {
			counted, countError := tokenizer.CountBytes(writer.counter, data)
			if countError != nil {
				return summary, fmt.Errorf(countTokensFormat, destination, countError)
			}
			written.Tokens = counted.Tokens
			written.Counted = counted.Counted
		}
		summary.Documents = append(summary.Documents, written)
		summary.TotalEntries += len(written.Entries)
		summary.TotalBytes += written.Bytes
		summary.TotalTokens += written.Tokens
	}
	return summary, nil
}

// FormatDocumentLine describes a single written document.
func FormatDocumentLine(written WrittenDocument) string {
	tokens := ""
	if written.Counted {
		tokens = fmt.Sprintf(", %d tokens", written.Tokens)
	}
	return fmt.Sprintf("%s: %d %s, %s%s", written.Path, len(written.Entries), pluralFiles(len(written.Entries)), utils.FormatFileSize(written.Bytes), tokens)
}

// FormatSummaryLine produces the closing line of a run.
func FormatSummaryLine(summary Summary) string {
	documentLabel := "documents"
	if len(summary.Documents) == 1 {
		documentLabel = "document"
	}
	extra := ""
	if summary.TotalTokens > 0 {
		extra = fmt.Sprintf(", %d tokens", summary.TotalTokens)
	}
	modelSuffix := ""
	if summary.Model != "" {
		modelSuffix = fmt.Sprintf(" (model: %s)", summary.Model)
	}
	return fmt.Sprintf("Summary: %d %s, %d %s, %s%s%s", len(summary.Documents), documentLabel, summary.TotalEntries, pluralFiles(summary.TotalEntries), utils.FormatFileSize(summary.TotalBytes), extra, modelSuffix)
}

func pluralFiles(count int) string {
	if count == 1 {
		return "file"
	}
	return "files"
}
