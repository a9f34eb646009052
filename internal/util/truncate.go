package util

import "strings"

// TruncateBytes trims a string to maxBytes if needed.
func TruncateBytes(input string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(input) <= maxBytes {
		return input, false
	}
	return input[:maxBytes], true
}

// FirstLine returns the first line of text, clipped to maxBytes.
func FirstLine(text string, maxBytes int) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	out, _ := TruncateBytes(text, maxBytes)
	return out
}
