// Package transform turns raw file bytes into the text rendered inside a document entry.
package transform

import "strings"

var extensionLanguages = map[string]string{
	"sh":       "bash",
	"bash":     "bash",
	"c":        "c",
	"h":        "c",
	"cc":       "cpp",
	"cxx":      "cpp",
	"c++":      "cpp",
	"cpp":      "cpp",
	"hpp":      "cpp",
	"cs":       "csharp",
	"css":      "css",
	"go":       "go",
	"html":     "xml",
	"htm":      "xml",
	"xml":      "xml",
	"java":     "java",
	"js":       "javascript",
	"cjs":      "javascript",
	"mjs":      "javascript",
	"json":     "json",
	"jsx":      "jsx",
	"kt":       "kotlin",
	"kts":      "kotlin",
	"md":       "markdown",
	"markdown": "markdown",
	"php":      "php",
	"py":       "python",
	"rb":       "ruby",
	"rs":       "rust",
	"scss":     "scss",
	"sql":      "sql",
	"swift":    "swift",
	"toml":     "toml",
	"ts":       "typescript",
	"cts":      "typescript",
	"mts":      "typescript",
	"tsx":      "tsx",
	"yaml":     "yaml",
	"yml":      "yaml",
}

var baseNameLanguages = map[string]string{
	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"GNUmakefile": "makefile",
	"Jenkinsfile": "groovy",
	"go.mod":      "go",
	"go.sum":      "",
}

// markdownLanguage is the tag assigned to markdown files.
const markdownLanguage = "markdown"

// LanguageTag returns the fence language for a file given its base name and its extension
// without the dot, or an empty string when unknown. Well-known base names win over the extension.
func LanguageTag(baseName string, extension string) string {
	if language, known := baseNameLanguages[baseName]; known {
		return language
	}
	return extensionLanguages[strings.ToLower(extension)]
}
