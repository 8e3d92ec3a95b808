package directory

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Locale carries the language used for name ordering and number formatting.
// The zero value uses the root collation.
type Locale struct {
	tag language.Tag
}

// NewLocale parses a BCP 47 tag such as "en" or "de-DE".
func NewLocale(name string) (Locale, error) {
	tag, err := language.Parse(name)
	if err != nil {
		return Locale{}, err
	}
	return Locale{tag: tag}, nil
}

// Tag returns the language tag.
func (l Locale) Tag() language.Tag {
	return l.tag
}

// collate.Collator keeps internal buffers, so each caller gets its own.
func (l Locale) compareStrings() func(a, b string) int {
	return collate.New(l.tag).CompareString
}

// FormatCount formats n with the locale's thousands separators.
func (l Locale) FormatCount(n int64) string {
	return message.NewPrinter(l.tag).Sprintf("%d", n)
}
