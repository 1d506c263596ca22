package strategy

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordRunes is the shortest token that counts as a keyword.
const minKeywordRunes = 4

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true,
	"being": true, "between": true, "both": true, "could": true, "does": true,
	"each": true, "from": true, "have": true, "into": true, "more": true,
	"most": true, "must": true, "only": true, "other": true, "over": true,
	"same": true, "should": true, "some": true, "such": true, "than": true,
	"that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"under": true, "very": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true,
	"would": true, "your": true,
}

// tokenize lower-cases s and splits it on anything that is not a letter or
// digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// keywordSet returns the distinct keywords of s: tokens of at least
// minKeywordRunes runes that are not stopwords.
func keywordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(s) {
		if utf8.RuneCountInString(tok) < minKeywordRunes || stopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

// keywordDiff returns the sorted keywords present in next but not prev
// (added) and in prev but not next (dropped).
func keywordDiff(prev, next map[string]bool) (added, dropped []string) {
	for k := range next {
		if !prev[k] {
			added = append(added, k)
		}
	}
	for k := range prev {
		if !next[k] {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(added)
	sort.Strings(dropped)
	return added, dropped
}
