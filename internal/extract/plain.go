package extract

import (
	"strings"
	"unicode/utf8"
)

// plainPages splits text on form feeds. Invalid UTF-8 is replaced with U+FFFD.
func plainPages(content []byte) []string {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return strings.Split(text, "\f")
}
