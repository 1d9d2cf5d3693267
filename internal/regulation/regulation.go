// Package regulation holds the per-district rule catalog that maps a
// violation-type code to the governing regulation text.
package regulation

import (
	"sort"
	"strings"
)

// Reserved violation-type codes.
const (
	CodeOther      = "other"
	CodeBasketball = "bball_hoop"
)

// Entry is the regulation text for one (district, violation type) pair.
type Entry struct {
	Title         string `yaml:"title"`
	CodeNumber    string `yaml:"code_number"`
	ViolationName string `yaml:"violation_name"`
	Description   string `yaml:"description"`
}

// Heading returns "<code_number> <title>", or just the title when no code
// number is known.
func (e Entry) Heading() string {
	if e.CodeNumber == "" {
		return e.Title
	}
	return e.CodeNumber + " " + e.Title
}

// OtherEntry is returned for the reserved "other" code in every district.
var OtherEntry = Entry{
	Title:       "Other Violation",
	Description: "No specific regulation available for this violation. Please refer to the governing documents of the District.",
}

// Catalog is an immutable lookup table keyed by district then code. Build it
// once at startup and share it; it has no mutating methods.
type Catalog struct {
	districts map[string]map[string]Entry
}

// NewCatalog copies the given table into a Catalog. Keys are compared
// case-insensitively.
func NewCatalog(table map[string]map[string]Entry) *Catalog {
	c := &Catalog{districts: make(map[string]map[string]Entry, len(table))}
	for district, entries := range table {
		dk := foldKey(district)
		rules, ok := c.districts[dk]
		if !ok {
			rules = make(map[string]Entry, len(entries))
			c.districts[dk] = rules
		}
		for code, e := range entries {
			rules[foldKey(code)] = e
		}
	}
	return c
}

// Lookup resolves the regulation for a violation type in a district. The
// second result is false when the pair is unknown; callers skip that
// violation rather than fail.
func (c *Catalog) Lookup(districtKey, code string) (Entry, bool) {
	if foldKey(code) == CodeOther {
		return OtherEntry, true
	}
	if c == nil {
		return Entry{}, false
	}
	rules, ok := c.districts[foldKey(districtKey)]
	if !ok {
		return Entry{}, false
	}
	e, ok := rules[foldKey(code)]
	return e, ok
}

// Districts lists the district keys present in the catalog, sorted.
func (c *Catalog) Districts() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.districts))
	for k := range c.districts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Codes lists the violation codes known for a district, sorted.
func (c *Catalog) Codes(districtKey string) []string {
	if c == nil {
		return nil
	}
	rules := c.districts[foldKey(districtKey)]
	codes := make([]string, 0, len(rules))
	for k := range rules {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
