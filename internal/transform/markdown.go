package transform

import (
	"strings"
)

// MarkdownNotice is inserted once into every demoted markdown file.
const MarkdownNotice = "> **Note to AI agents:** Headers in this file have been modified (prepended with '#') to avoid conflict with the main document structure."

const (
	headingMarker      = '#'
	maximumIndentation = 3
	minimumFenceLength = 3
)

type fenceState struct {
	open      bool
	character byte
	length    int
}

// DemoteMarkdown adds one '#' to every heading outside fenced code and inserts MarkdownNotice
// after the first heading, or at the top when there is none.
func DemoteMarkdown(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var builder strings.Builder
	builder.Grow(len(text) + len(MarkdownNotice) + len(lines))

	fence := fenceState{}
	noticeWritten := false
	for _, line := range lines {
		if line == "" {
			continue
		}
		body := strings.TrimRight(line, "\r\n")
		if fence.update(body) {
			builder.WriteString(line)
			continue
		}
		if fence.open || !isHeading(body) {
			builder.WriteString(line)
			continue
		}
		indentation := len(body) - len(strings.TrimLeft(body, " "))
		builder.WriteString(line[:indentation])
		builder.WriteByte(headingMarker)
		builder.WriteString(line[indentation:])
		if !noticeWritten {
			if strings.HasSuffix(line, "\n") {
				builder.WriteString(MarkdownNotice + "\n")
			} else {
				builder.WriteString("\n" + MarkdownNotice)
			}
			noticeWritten = true
		}
	}
	if noticeWritten {
		return builder.String()
	}
	return MarkdownNotice + "\n" + builder.String()
}

// update advances the fence state for one line and reports whether the line is a fence delimiter.
func (state *fenceState) update(body string) bool {
	trimmed := strings.TrimLeft(body, " ")
	if len(body)-len(trimmed) > maximumIndentation || trimmed == "" {
		return false
	}
	character := trimmed[0]
	if character != '`' && character != '~' {
		return false
	}
	runLength := 0
	for runLength < len(trimmed) && trimmed[runLength] == character {
		runLength++
	}
	if runLength < minimumFenceLength {
		return false
	}
	if !state.open {
		if character == '`' && strings.ContainsRune(trimmed[runLength:], '`') {
			return false
		}
		*state = fenceState{open: true, character: character, length: runLength}
		return true
	}
	if character == state.character && runLength >= state.length && strings.TrimSpace(trimmed[runLength:]) == "" {
		*state = fenceState{}
		return true
	}
	return false
}

func isHeading(body string) bool {
	trimmed := strings.TrimLeft(body, " ")
	if len(body)-len(trimmed) > maximumIndentation {
		return false
	}
	markerCount := 0
	for markerCount < len(trimmed) && trimmed[markerCount] == headingMarker {
		markerCount++
	}
	if markerCount == 0 {
		return false
	}
	if markerCount == len(trimmed) {
		return true
	}
	next := trimmed[markerCount]
	return next == ' ' || next == '\t'
}
