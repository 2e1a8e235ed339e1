package transform_test

import (
	"strings"
	"testing"

	"github.com/fabiomolinar/git2prompt/internal/transform"
)

func TestLanguageTag(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		baseName  string
		extension string
		expected  string
	}{
		{baseName: "main.go", extension: "go", expected: "go"},
		{baseName: "app.MJS", extension: "MJS", expected: "javascript"},
		{baseName: "module.cts", extension: "cts", expected: "typescript"},
		{baseName: "page.htm", extension: "htm", expected: "xml"},
		{baseName: "config.yml", extension: "yml", expected: "yaml"},
		{baseName: "vector.c++", extension: "c++", expected: "cpp"},
		{baseName: "README.markdown", extension: "markdown", expected: "markdown"},
		{baseName: "Dockerfile", extension: "", expected: "dockerfile"},
		{baseName: "Makefile", extension: "", expected: "makefile"},
		{baseName: "go.mod", extension: "mod", expected: "go"},
		{baseName: "notes.txt", extension: "txt", expected: ""},
		{baseName: "LICENSE", extension: "", expected: ""},
	}
	for _, testCase := range testCases {
		if actual := transform.LanguageTag(testCase.baseName, testCase.extension); actual != testCase.expected {
			t.Fatalf("LanguageTag(%q, %q)=%q, want %q", testCase.baseName, testCase.extension, actual, testCase.expected)
		}
	}
}

func TestDemoteMarkdown(t *testing.T) {
	t.Parallel()

	notice := transform.MarkdownNotice
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "headings_demoted_notice_after_first",
			input:    "# Title\ntext\n## Section\n",
			expected: "## Title\n" + notice + "\ntext\n### Section\n",
		},
		{
			name:     "notice_at_top_without_heading",
			input:    "plain text\n",
			expected: notice + "\nplain text\n",
		},
		{
			name:     "fenced_content_untouched",
			input:    "intro\n```bash\n# comment\n```\n# Real\n",
			expected: "intro\n```bash\n# comment\n```\n## Real\n" + notice + "\n",
		},
		{
			name:     "tilde_fence_needs_same_character",
			input:    "~~~\n```\n# inside\n~~~\n# outside\n",
			expected: "~~~\n```\n# inside\n~~~\n## outside\n" + notice + "\n",
		},
		{
			name:     "closing_fence_must_be_long_enough",
			input:    "````\n```\n# inside\n````\n",
			expected: notice + "\n````\n```\n# inside\n````\n",
		},
		{
			name:     "indented_heading_allowed",
			input:    "   # Indented\n",
			expected: "   ## Indented\n" + notice + "\n",
		},
		{
			name:     "four_spaces_is_not_heading",
			input:    "    # code\n",
			expected: notice + "\n    # code\n",
		},
		{
			name:     "hash_without_space_is_not_heading",
			input:    "#hashtag\n",
			expected: notice + "\n#hashtag\n",
		},
		{
			name:     "heading_without_trailing_newline",
			input:    "# Only",
			expected: "## Only\n" + notice,
		},
		{
			name:     "crlf_line_endings",
			input:    "# Title\r\nbody\r\n",
			expected: "## Title\r\n" + notice + "\nbody\r\n",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(testingHandle *testing.T) {
			testingHandle.Parallel()
			actual := transform.DemoteMarkdown(testCase.input)
			if actual != testCase.expected {
				testingHandle.Fatalf("DemoteMarkdown mismatch\nwant: %q\ngot:  %q", testCase.expected, actual)
			}
			if strings.Count(actual, notice) != 1 {
				testingHandle.Fatalf("expected exactly one notice, got %d", strings.Count(actual, notice))
			}
		})
	}
}

func TestTransform(t *testing.T) {
	t.Parallel()

	markdown := transform.Transform("guide.md", "md", []byte("# Guide\n"))
	if !markdown.Markdown || markdown.LanguageTag != "markdown" || !strings.HasPrefix(markdown.Text, "## Guide\n") {
		t.Fatalf("unexpected markdown content %+v", markdown)
	}

	source := transform.Transform("main.go", "go", []byte("package main\n"))
	if source.Markdown || source.Binary || source.Text != "package main\n" || source.LanguageTag != "go" {
		t.Fatalf("unexpected source content %+v", source)
	}

	binary := transform.Transform("blob.md", "md", []byte{0x00, 0x01, '#', ' '})
	if !binary.Binary || binary.Markdown || binary.Text != string([]byte{0x00, 0x01, '#', ' '}) {
		t.Fatalf("binary content must pass through unchanged, got %+v", binary)
	}
}
