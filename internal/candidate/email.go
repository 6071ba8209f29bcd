package candidate

import (
	"regexp"
	"strings"
)

var emailInText = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)

// ExtractEmail returns the first email address found in the document text,
// lowercased. The second result is false when the text contains none.
func ExtractEmail(text string) (string, bool) {
	match := emailInText.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}
