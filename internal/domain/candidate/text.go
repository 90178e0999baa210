package candidate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Autocomplete n-gram bounds, in runes.
const (
	MinGram = 2
	MaxGram = 20
)

// Fold lowercases s and strips combining marks ("Ingénieur" -> "ingenieur").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokenize folds s and splits it into canonical search tokens.
// Symbols that carry meaning inside a token are spelled out so the engine
// tokenizer keeps them whole: "c++" -> "cplusplus", "c#" -> "csharp",
// "bac+5" -> "bacplus5", "node.js" -> "nodejs".
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := canonicalToken(f); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Canonical joins the tokens of s with single spaces.
func Canonical(s string) string {
	return strings.Join(Tokenize(s), " ")
}

func canonicalToken(tok string) string {
	tok = strings.Trim(tok, ".")
	if tok == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(tok) + 8)
	for _, r := range tok {
		switch r {
		case '+':
			b.WriteString("plus")
		case '#':
			b.WriteString("sharp")
		case '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EdgeNGrams returns the distinct leading n-grams of every token in texts,
// between MinGram and MaxGram runes long. Tokens shorter than MinGram are kept whole.
func EdgeNGrams(texts ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(g string) {
		if _, ok := seen[g]; ok {
			return
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}

	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			rs := []rune(tok)
			if len(rs) < MinGram {
				add(tok)
				continue
			}
			upper := min(len(rs), MaxGram)
			for n := MinGram; n <= upper; n++ {
				add(string(rs[:n]))
			}
		}
	}
	return out
}

// NormalizeTag folds a facet or tag value into its stored form.
func NormalizeTag(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

// MinFuzzyPrefix is the token length at or under which terms are matched exactly,
// and the number of leading runes a typo match must keep unchanged.
const MinFuzzyPrefix = 2

// SharedPrefix reports whether a and b agree on their first MinFuzzyPrefix runes.
func SharedPrefix(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < MinFuzzyPrefix || len(rb) < MinFuzzyPrefix {
		return false
	}
	return string(ra[:MinFuzzyPrefix]) == string(rb[:MinFuzzyPrefix])
}

// AutoFuzziness returns the allowed edit distance for a term, scaling with its
// length: exact up to MinFuzzyPrefix runes, 1 edit up to 5 runes, 2 beyond.
func AutoFuzziness(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n <= MinFuzzyPrefix:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// MatchesTerm reports whether the canonical token tok answers the query term:
// verbatim, as a longer inflection of it ("developpeurs"), or as a typo within
// AutoFuzziness that keeps the first MinFuzzyPrefix runes.
func MatchesTerm(tok, term string) bool {
	if tok == "" || term == "" {
		return false
	}
	if tok == term {
		return true
	}
	if utf8.RuneCountInString(term) > MinFuzzyPrefix && strings.HasPrefix(tok, term) {
		return true
	}
	d := AutoFuzziness(term)
	return d > 0 && SharedPrefix(tok, term) && EditDistance(tok, term) <= d
}

// EditDistance is the Levenshtein distance between a and b, in runes.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
