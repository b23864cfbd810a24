package repositorycache

import (
	"strings"
	"unicode"
)

// toSnake renders a reflected type name as a snake_case namespace. Runs of
// anything other than letters and digits collapse into one separator, so
// pointer and generic punctuation never reaches the key prefix.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + len(runes)/2)

	pending := false
	sep := func() {
		if b.Len() > 0 {
			pending = true
		}
	}
	write := func(r rune) {
		if pending {
			b.WriteByte('_')
			pending = false
		}
		b.WriteRune(r)
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			write(unicode.ToLower(r))
		case unicode.IsLower(r):
			write(r)
		case unicode.IsDigit(r):
			if i > 0 && unicode.IsLetter(runes[i-1]) {
				sep()
			}
			write(r)
		default:
			sep()
		}
	}
	return b.String()
}
