package directory

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	leadingFloatPattern = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)
	leadingIntPattern   = regexp.MustCompile(`^[+-]?(?:0[xX][0-9a-fA-F]+|\d+)`)
)

// ParseLeadingFloat reads the longest numeric prefix of s after leading
// whitespace, the way a browser's parseFloat does ("4.5 stars" is 4.5).
func ParseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	match := leadingFloatPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseLeadingInt reads the leading integer of s the way parseInt does with no
// radix: "1,234" is 1 and "0x1f" is 31.
func ParseLeadingInt(s string) (int64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	match := leadingIntPattern.FindString(s)
	if match == "" {
		return 0, false
	}

	sign := int64(1)
	digits := match
	switch digits[0] {
	case '-':
		sign = -1
		digits = digits[1:]
	case '+':
		digits = digits[1:]
	}

	base := 10
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		base = 16
		digits = digits[2:]
	}

	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		// out of range: saturate instead of dropping the record's count
		return sign * math.MaxInt64, true
	}
	return sign * v, true
}
