package extraction

import (
	"regexp"
	"sort"
	"strings"
)

// Rule is one entry of an ordered extraction table. Tables are consulted in
// ascending Priority and the first rule that matches wins.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Priority int
}

// DateRules recognises transaction dates. A slash-form date anywhere in the
// text beats a dash or ISO date, regardless of position.
var DateRules = []Rule{
	{Name: "slash", Pattern: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), Priority: 1},
	{Name: "dash", Pattern: regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{2,4}\b`), Priority: 2},
	{Name: "iso", Pattern: regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), Priority: 3},
}

// TotalRules recognise the final amount. Within a rule the last occurrence
// is taken, so a trailing "Total" beats an earlier "Subtotal".
var TotalRules = []Rule{
	{Name: "total", Pattern: regexp.MustCompile(`(?i)total[:\s]*\$?(\d+\.?\d*)`), Priority: 1},
	{Name: "balance_due", Pattern: regexp.MustCompile(`(?i)balance due[:\s]*\$?(\d+\.?\d*)`), Priority: 2},
}

const addressPattern = `(?i)\d+\s+[a-zA-Z\s]+(?:st|street|rd|road|ave|avenue|blvd|boulevard)`

// StoreRules recognise a store location. The full matched text is returned.
var StoreRules = []Rule{
	{Name: "street_address", Pattern: regexp.MustCompile(addressPattern), Priority: 1},
	{Name: "suite", Pattern: regexp.MustCompile(`(?i)suite\s+[a-z0-9]+`), Priority: 2},
	{Name: "store_number", Pattern: regexp.MustCompile(`(?i)store\s*#?\s*(\d+)`), Priority: 3},
}

// MerchantNoiseRules are stripped from merchant names, in order.
var MerchantNoiseRules = []Rule{
	{Name: "phone", Pattern: regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`), Priority: 1},
	{Name: "street_address", Pattern: regexp.MustCompile(addressPattern), Priority: 2},
	{Name: "suite", Pattern: regexp.MustCompile(`(?i)suite\s+[a-z0-9]+`), Priority: 3},
}

var whitespace = regexp.MustCompile(`\s+`)

func ordered(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// MatchDate returns the first date found by the highest-priority rule, or nil.
func MatchDate(text string) *string {
	for _, r := range ordered(DateRules) {
		if m := r.Pattern.FindString(text); m != "" {
			return &m
		}
	}
	return nil
}

// MatchTotal returns the amount captured by the last occurrence of the
// highest-priority total rule that matches at all, or nil.
func MatchTotal(text string) *string {
	for _, r := range ordered(TotalRules) {
		matches := r.Pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		amount := matches[len(matches)-1][1]
		return &amount
	}
	return nil
}

// MatchStore returns the full text of the first store rule that matches, or nil.
func MatchStore(text string) *string {
	for _, r := range ordered(StoreRules) {
		if m := r.Pattern.FindString(text); m != "" {
			m = strings.TrimSpace(m)
			return &m
		}
	}
	return nil
}

// CleanMerchant removes phone numbers, street addresses and suite numbers,
// then collapses whitespace.
func CleanMerchant(s string) string {
	for _, r := range ordered(MerchantNoiseRules) {
		s = r.Pattern.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
