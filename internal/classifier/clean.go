package classifier

import (
	"strings"
	"unicode"
)

const fence = "```"

// CleanResponse strips a surrounding fenced code block from a model response.
// The opening fence may carry a language tag and the closing fence may be
// missing. Unfenced input is only trimmed. Applying it twice gives the same
// result as applying it once.
func CleanResponse(raw string) string {
	cleaned := strings.TrimSpace(raw)
	for strings.HasPrefix(cleaned, fence) {
		cleaned = stripFence(cleaned)
	}
	return cleaned
}

func stripFence(s string) string {
	s = strings.TrimPrefix(s, fence)

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if isLanguageTag(s[:i]) {
			s = s[i+1:]
		} else {
			s = trimInlineTag(s[:i]) + s[i:]
		}
	} else {
		s = trimInlineTag(s)
	}

	if idx := strings.LastIndex(s, fence); idx >= 0 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}

// isLanguageTag reports whether the remainder of an opening fence line is
// empty or a single word such as "json".
func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	for _, r := range line {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("+-_.", r) {
			return false
		}
	}
	return true
}

// trimInlineTag drops a language tag written on the same line as the content,
// as in "```json {...}```" or "```json {" followed by more lines.
func trimInlineTag(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	switch end {
	case -1:
		return ""
	case 0:
		return s
	}

	next := rune(s[end])
	if next == '{' || next == '[' || unicode.IsSpace(next) {
		return s[end:]
	}
	return s
}
