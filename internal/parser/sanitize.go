package parser

import (
	"regexp"
	"strings"
)

var (
	newlineRunRe = regexp.MustCompile(`[\r\n]+`)
	controlRe    = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
)

// SanitizeText strips control characters and markdown emphasis/heading
// markers and flattens line breaks into single spaces. Line breaks are
// replaced before other control characters are dropped, so "a\nb" becomes
// "a b" rather than "ab" and words on adjacent lines stay separated.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	s = newlineRunRe.ReplaceAllString(s, " ")
	s = controlRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "##", "")
	return strings.TrimSpace(s)
}
