// Package phone normalizes and validates Bangladeshi mobile numbers.
//
// Three forms are in play: the raw text a user typed, the national form
// ("01712345678") sent on login, and the international form
// ("+8801712345678") sent when requesting a registration code.
package phone

import (
	"regexp"
	"strings"
)

// CountryCode is the international prefix forced on registration numbers.
const CountryCode = "+88"

var (
	separators = strings.NewReplacer(" ", "", "\t", "", "-", "")

	// nationalPattern is the accepted mobile number shape, optionally
	// prefixed with the country code.
	nationalPattern = regexp.MustCompile(`^(?:\+88|88)?(01[3-9]\d{8})$`)
)

// Clean strips whitespace and hyphens.
func Clean(raw string) string {
	return separators.Replace(strings.TrimSpace(raw))
}

// National returns the number without a "+88" or "88" prefix.
func National(raw string) string {
	p := Clean(raw)
	switch {
	case strings.HasPrefix(p, "+88"):
		return p[3:]
	case strings.HasPrefix(p, "88"):
		return p[2:]
	}
	return p
}

// International returns the number with the "+88" prefix forced.
func International(raw string) string {
	n := National(raw)
	if n == "" {
		return ""
	}
	return CountryCode + n
}

// Valid reports whether raw matches the national mobile pattern. raw is
// checked as typed; separators are not stripped first.
func Valid(raw string) bool {
	return nationalPattern.MatchString(raw)
}

// Same reports whether a and b are the same subscriber number once
// separators and the country code are removed.
func Same(a, b string) bool {
	na, nb := National(a), National(b)
	return na != "" && na == nb
}
