package ai

import "strings"

// SanitizePrompt strips control characters from user-supplied text before
// it is embedded in a prompt, and caps its length.
func SanitizePrompt(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	const max = 4000
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}
