package similarity

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// proximityEpsilon keeps the numeric ratio defined around zero.
const proximityEpsilon = 1e-4

// ParseNumber reports whether s is a finite number. Surrounding whitespace is
// ignored; the empty string, NaN and infinities are not numbers.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumericProximity is (min(|a|,|b|)+ε) / (max(|a|,|b|)+ε), in (0,1].
func NumericProximity(a, b float64) float64 {
	a, b = math.Abs(a), math.Abs(b)
	return (math.Min(a, b) + proximityEpsilon) / (math.Max(a, b) + proximityEpsilon)
}

// EditSimilarity is 1 - levenshtein(a,b)/max(len(a),len(b)) measured in runes.
// An empty side scores 0 so that NULL cells never look similar.
func EditSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// CellSimilarity scores a candidate cell (doc) against a seed value (term):
// numeric proximity when both are numbers, edit similarity otherwise.
func CellSimilarity(doc, term string) float64 {
	if a, ok := ParseNumber(doc); ok {
		if b, ok := ParseNumber(term); ok {
			return NumericProximity(a, b)
		}
	}
	return EditSimilarity(doc, term)
}
