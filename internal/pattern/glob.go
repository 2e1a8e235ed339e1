package pattern

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const (
	anyDirectoriesExpression = "(?:.*/)?"
	anythingExpression       = ".*"
	segmentWildcard          = "[^/]*"
	singleCharacterWildcard  = "[^/]"
	danglingEscapeMessage    = "dangling escape"
	unterminatedClassMessage = "unterminated character class"
	unknownClassNameFormat   = "%w: unknown character class [:%s:]"
	compileExpressionFormat  = "%w: %v"
)

// characterClassNames are the POSIX classes accepted inside bracket expressions.
var characterClassNames = map[string]struct{}{
	"alnum": {}, "alpha": {}, "blank": {}, "cntrl": {}, "digit": {}, "graph": {},
	"lower": {}, "print": {}, "punct": {}, "space": {}, "upper": {}, "xdigit": {},
}

type compiledRule struct {
	rule         Rule
	basenameOnly bool
	expression   *regexp.Regexp
}

func compileRule(rule Rule) (compiledRule, error) {
	expressionBody, translateError := globToExpression(rule.Pattern)
	if translateError != nil {
		return compiledRule{}, translateError
	}
	expression, compileError := regexp.Compile("^" + expressionBody + "$")
	if compileError != nil {
		return compiledRule{}, fmt.Errorf(compileExpressionFormat, ErrInvalidPattern, compileError)
	}
	return compiledRule{
		rule:         rule,
		basenameOnly: !rule.Anchored && !strings.Contains(rule.Pattern, pathSeparator),
		expression:   expression,
	}, nil
}

// matches reports whether the rule applies to a normalized relative path.
func (compiled compiledRule) matches(relativePath string, isDirectory bool) bool {
	if compiled.rule.DirectoryOnly && !isDirectory {
		return false
	}
	candidate := relativePath
	if compiled.rule.Base != "" {
		basePrefix := compiled.rule.Base + pathSeparator
		if !strings.HasPrefix(relativePath, basePrefix) {
			return false
		}
		candidate = strings.TrimPrefix(relativePath, basePrefix)
	}
	if compiled.basenameOnly {
		candidate = path.Base(candidate)
	}
	return compiled.expression.MatchString(candidate)
}

// globToExpression translates a gitignore glob into a regular expression body.
func globToExpression(glob string) (string, error) {
	var builder strings.Builder
	characters := []rune(glob)
	for index := 0; index < len(characters); index++ {
		character := characters[index]
		switch character {
		case '\\':
			if index+1 >= len(characters) {
				return "", fmt.Errorf(compileExpressionFormat, ErrInvalidPattern, danglingEscapeMessage)
			}
			index++
			builder.WriteString(regexp.QuoteMeta(string(characters[index])))
		case '*':
			starCount := 1
			for index+1 < len(characters) && characters[index+1] == '*' {
				starCount++
				index++
			}
			atSegmentStart := index-starCount+1 == 0 || characters[index-starCount] == '/'
			if starCount < 2 || !atSegmentStart {
				builder.WriteString(segmentWildcard)
				continue
			}
			if index+1 == len(characters) {
				builder.WriteString(anythingExpression)
				continue
			}
			if characters[index+1] == '/' {
				builder.WriteString(anyDirectoriesExpression)
				index++
				continue
			}
			builder.WriteString(segmentWildcard)
		case '?':
			builder.WriteString(singleCharacterWildcard)
		case '[':
			classExpression, consumed, classError := translateClass(characters[index:])
			if classError != nil {
				return "", classError
			}
			builder.WriteString(classExpression)
			index += consumed - 1
		default:
			builder.WriteString(regexp.QuoteMeta(string(character)))
		}
	}
	return builder.String(), nil
}

// translateClass converts a bracket expression starting at characters[0] and returns the
// expression together with the number of runes consumed.
func translateClass(characters []rune) (string, int, error) {
	var builder strings.Builder
	builder.WriteString("[")
	index := 1
	if index < len(characters) && (characters[index] == '!' || characters[index] == '^') {
		builder.WriteString("^")
		index++
	}
	firstMember := true
	for index < len(characters) {
		character := characters[index]
		switch {
		case character == ']' && !firstMember:
			builder.WriteString("]")
			return builder.String(), index + 1, nil
		case character == '\\':
			if index+1 >= len(characters) {
				return "", 0, fmt.Errorf(compileExpressionFormat, ErrInvalidPattern, danglingEscapeMessage)
			}
			index++
			if characters[index] == '-' {
				builder.WriteString(`\-`)
			} else {
				builder.WriteString(regexp.QuoteMeta(string(characters[index])))
			}
		case character == '[' && index+1 < len(characters) && characters[index+1] == ':':
			className, consumed, isClass := readClassName(characters[index:])
			if !isClass {
				builder.WriteString(`\[`)
				break
			}
			if _, known := characterClassNames[className]; !known {
				return "", 0, fmt.Errorf(unknownClassNameFormat, ErrInvalidPattern, className)
			}
			builder.WriteString("[:" + className + ":]")
			index += consumed - 1
		case character == '[' || character == ']':
			builder.WriteString(`\`)
			builder.WriteRune(character)
		default:
			builder.WriteRune(character)
		}
		firstMember = false
		index++
	}
	return "", 0, fmt.Errorf(compileExpressionFormat, ErrInvalidPattern, unterminatedClassMessage)
}

// readClassName parses "[:name:]" at characters[0] and returns the name and the runes consumed.
func readClassName(characters []rune) (string, int, bool) {
	for index := 2; index+1 < len(characters); index++ {
		if characters[index] == ':' && characters[index+1] == ']' {
			return string(characters[2:index]), index + 2, true
		}
		if characters[index] == ']' {
			return "", 0, false
		}
	}
	return "", 0, false
}
