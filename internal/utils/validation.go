package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the longest list or item label accepted from user input.
const MaxLabelLength = 256

// ValidateLabel trims label and checks it is non-empty, single-line and not oversized.
// Returns the trimmed label.
func ValidateLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") || utf8.RuneCountInString(trimmed) > MaxLabelLength {
		return "", ErrInvalidLabel(label)
	}
	return trimmed, nil
}

// ParseItemID parses a positive numeric item id.
func ParseItemID(ref string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidItemID(ref)
	}
	return id, nil
}
