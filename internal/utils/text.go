package utils

import (
	"strings"
)

// StripCodeFence removes a surrounding Markdown code block (```lang ... ```)
// that language models like to wrap short answers in
func StripCodeFence(input string) string {
	cleaned := strings.TrimSpace(input)

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		// drop the language tag on the opening line
		if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
			cleaned = cleaned[i+1:]
		} else {
			cleaned = ""
		}
	}

	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
