package catalog

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// slugify drops punctuation before slugging so that "&" and "@" vanish
// instead of being spelled out. "oil-&-gas-pump" becomes "oil-gas-pump",
// matching the slugs the catalogue stores.
func slugify(s string) string {
	kept := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, s)
	return slug.Make(kept)
}
