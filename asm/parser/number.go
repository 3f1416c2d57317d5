package parser

import (
	"strconv"
	"strings"
)

// ParseNumber parses value as an integer. A 0x, 0o or 0b prefix selects
// hexadecimal, octal or binary; anything else is decimal, so a bare
// leading zero does not turn a literal into legacy octal.
func ParseNumber(value string) (int64, error) {
	base := 10
	lower := strings.ToLower(value)

	switch {
	case strings.HasPrefix(lower, "0x"):
		base, value = 16, value[2:]
	case strings.HasPrefix(lower, "0o"):
		base, value = 8, value[2:]
	case strings.HasPrefix(lower, "0b"):
		base, value = 2, value[2:]
	}

	return strconv.ParseInt(value, base, 64)
}

// ParseHex parses value as a bare hexadecimal number, as used by
// address (%) and indirect zero-page operands.
func ParseHex(value string) (int64, error) {
	return strconv.ParseInt(value, 16, 64)
}
