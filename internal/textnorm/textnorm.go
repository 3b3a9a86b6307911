// Package textnorm folds names for diacritic- and case-insensitive matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks and collapses whitespace, so
// "José  Pérez" and "jose perez" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Equal reports whether a and b fold to the same key.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Contains reports whether the folded form of s contains the folded query.
func Contains(s, query string) bool {
	q := Fold(query)
	if q == "" {
		return false
	}
	return strings.Contains(Fold(s), q)
}

// Similar is the looser comparison used for "did you mean" suggestions: any
// query word of three or more letters appears in the candidate, or the two
// share a three-letter prefix.
func Similar(candidate, query string) bool {
	c := Fold(candidate)
	q := Fold(query)
	if c == "" || q == "" {
		return false
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return true
	}
	for _, w := range strings.Fields(q) {
		if len([]rune(w)) >= 3 && strings.Contains(c, w) {
			return true
		}
	}
	return sharedPrefix(c, q) >= 3
}

func sharedPrefix(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return n
}

// Match is the result of resolving a query against a set of names.
type Match struct {
	Index       int
	Suggestions []string
}

// Resolve finds the best candidate for query: an exact folded match wins,
// then a single substring match. When nothing resolves, Index is -1 and up to
// maxSuggestions similar names are returned.
func Resolve(names []string, query string, maxSuggestions int) Match {
	q := Fold(query)
	if q == "" {
		return Match{Index: -1}
	}
	var contains []int
	for i, n := range names {
		f := Fold(n)
		if f == q {
			return Match{Index: i}
		}
		if strings.Contains(f, q) {
			contains = append(contains, i)
		}
	}
	if len(contains) == 1 {
		return Match{Index: contains[0]}
	}

	var suggestions []string
	add := func(n string) {
		if len(suggestions) >= maxSuggestions {
			return
		}
		for _, s := range suggestions {
			if s == n {
				return
			}
		}
		suggestions = append(suggestions, n)
	}
	for _, i := range contains {
		add(names[i])
	}
	for _, n := range names {
		if Similar(n, query) {
			add(n)
		}
	}
	return Match{Index: -1, Suggestions: suggestions}
}
