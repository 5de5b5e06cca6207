package util

import "regexp"

var reBraced = regexp.MustCompile(`\{.*?\}`)

// StripBraces removes every {...} span, braces included. Saberis embeds
// dimension annotations this way and they must not reach customer-facing
// names.
func StripBraces(input string) string {
	return reBraced.ReplaceAllString(input, "")
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
