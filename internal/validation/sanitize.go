package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// tagPattern matches markup tags and comments.
	tagPattern = regexp.MustCompile(`(?s)<!--.*?-->|<[^<>]*>`)

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// StripTags removes markup tags from s. Tags assembled out of the pieces of a
// removed tag (e.g. "<<b>script>") are removed on a later pass.
func StripTags(s string) string {
	for i := 0; i < 8; i++ {
		stripped := tagPattern.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	return s
}

// SanitizeText strips tags and control characters and trims the result.
func SanitizeText(s string) string {
	s = StripTags(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ValidEmail reports whether s is a bare address such as bob@example.com.
func ValidEmail(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}
