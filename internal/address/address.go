// Package address canonicalizes free-form US street addresses into a key
// suitable for exact-match joins between rosters and field reports.
package address

import "strings"

// suffixes is applied in order; later entries see earlier substitutions.
// The table is re-run until nothing changes, since a rewrite can expose an
// earlier long form ("boulevaroad" becomes "boulevard").
var suffixes = []struct{ long, short string }{
	{"street", "st"},
	{"avenue", "ave"},
	{"boulevard", "blvd"},
	{"drive", "dr"},
	{"road", "rd"},
	{"lane", "ln"},
	{"court", "ct"},
	{"place", "pl"},
	{"trail", "trl"},
	{"parkway", "pkwy"},
	{"circle", "cir"},
	{"terrace", "ter"},
	{"way", "way"},
}

// Normalize produces the comparison key for a raw address. It lower-cases,
// drops periods and commas, collapses whitespace and abbreviates street
// suffixes. Matching is literal: a suffix is rewritten wherever the string
// ends with it or it appears followed by a space, even inside a longer word.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	addr := strings.ToLower(strings.TrimSpace(raw))
	addr = strings.ReplaceAll(addr, ".", "")
	addr = strings.ReplaceAll(addr, ",", "")
	addr = strings.Join(strings.Fields(addr), " ") // collapse whitespace

	for {
		next := abbreviate(addr)
		if next == addr {
			return strings.TrimSpace(addr)
		}
		addr = next
	}
}

// abbreviate makes one ordered pass over the suffix table. Every rewrite
// shortens the string, so repeated passes terminate.
func abbreviate(addr string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(addr, s.long) {
			addr = addr[:len(addr)-len(s.long)] + s.short
		}
		// A suffix can precede a unit designator, e.g. "drive unit 2".
		addr = strings.ReplaceAll(addr, s.long+" ", s.short+" ")
	}
	return addr
}
