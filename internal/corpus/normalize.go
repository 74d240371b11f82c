package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	wordSplit    = regexp.MustCompile(`[ _]+`)
	keywordSplit = regexp.MustCompile(`[\s,]+`)
	fileCell     = regexp.MustCompile(`^File:.*?\.\w{3}$`)
)

// NormalizeKeyword folds a word into the form stored in the keyword tables:
// NFKC-normalized and case-folded, with surrounding punctuation trimmed.
func NormalizeKeyword(word string) string {
	word = norm.NFKC.String(word)
	word = cases.Fold().String(word)
	return strings.Trim(word, ",.;:!?\"'()[]")
}

// SplitKeywords turns user input into normalized keywords, splitting on
// commas and whitespace and dropping duplicates.
func SplitKeywords(inputs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, in := range inputs {
		for _, w := range keywordSplit.Split(in, -1) {
			w = NormalizeKeyword(w)
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}

// cellWords returns the keywords indexed for a cell or header value.
func cellWords(value string) []string {
	if fileCell.MatchString(value) {
		return nil
	}
	return textWords(strings.Trim(value, ",."))
}

// textWords returns the keywords indexed for a title or caption.
func textWords(s string) []string {
	var out []string
	for _, w := range wordSplit.Split(s, -1) {
		if w = NormalizeKeyword(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
