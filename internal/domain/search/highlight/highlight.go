// Package highlight extracts contiguous, length-capped fragments around query matches.
package highlight

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// Fragment limits.
const (
	DefaultFragmentSize = 150
	DefaultMaxFragments = 3
)

// Span is a matched region of a fragment, as rune offsets [Start, End).
type Span struct {
	Start int
	End   int
}

// Fragment is a contiguous excerpt of one document field with its matches.
// Fragments carry offsets rather than markup; Marked renders them.
type Fragment struct {
	Field   string
	Text    string
	Matches []Span
}

// Marked wraps every match of the fragment in pre and post.
func (f Fragment) Marked(pre, post string) string {
	rs := []rune(f.Text)
	var b strings.Builder
	last := 0
	for _, m := range f.Matches {
		if m.Start < last || m.End > len(rs) {
			continue
		}
		b.WriteString(string(rs[last:m.Start]))
		b.WriteString(pre)
		b.WriteString(string(rs[m.Start:m.End]))
		b.WriteString(post)
		last = m.End
	}
	b.WriteString(string(rs[last:]))
	return b.String()
}

// Highlighter finds query terms in document text.
type Highlighter struct {
	terms        []string
	fragmentSize int
	maxFragments int
}

// Option customizes a Highlighter.
type Option func(*Highlighter)

// WithFragmentSize caps fragment length in runes.
func WithFragmentSize(n int) Option {
	return func(h *Highlighter) {
		if n > 0 {
			h.fragmentSize = n
		}
	}
}

// WithMaxFragments caps the fragments returned per field.
func WithMaxFragments(n int) Option {
	return func(h *Highlighter) {
		if n > 0 {
			h.maxFragments = n
		}
	}
}

// New creates a highlighter for the canonical query tokens.
func New(terms []string, opts ...Option) *Highlighter {
	h := &Highlighter{terms: terms, fragmentSize: DefaultFragmentSize, maxFragments: DefaultMaxFragments}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Document highlights the searchable fields of doc.
func (h *Highlighter) Document(doc *candidate.Document) []Fragment {
	if len(h.terms) == 0 {
		return nil
	}
	var out []Fragment
	out = append(out, h.Field("title", doc.Title)...)
	out = append(out, h.Field("current_job", doc.CurrentJobTitle())...)
	out = append(out, h.Field("summary", doc.Summary)...)
	out = append(out, h.fieldValues("positions", doc.Positions())...)
	out = append(out, h.fieldValues("skills", doc.SkillNames())...)
	return out
}

func (h *Highlighter) fieldValues(field string, values []string) []Fragment {
	var out []Fragment
	for _, v := range values {
		if len(out) >= h.maxFragments {
			break
		}
		out = append(out, h.Field(field, v)...)
	}
	if len(out) > h.maxFragments {
		out = out[:h.maxFragments]
	}
	return out
}

type word struct {
	start, end int
	matched    bool
}

// Field highlights a single text value.
func (h *Highlighter) Field(field, text string) []Fragment {
	if text == "" || len(h.terms) == 0 {
		return nil
	}
	rs := []rune(text)
	words := scanWords(rs)

	found := false
	for i := range words {
		tok := candidate.Canonical(string(rs[words[i].start:words[i].end]))
		if h.matches(tok) {
			words[i].matched = true
			found = true
		}
	}
	if !found {
		return nil
	}

	var out []Fragment
	coveredTo := -1
	for _, w := range words {
		if !w.matched || w.start < coveredTo {
			continue
		}
		if len(out) == h.maxFragments {
			break
		}

		start, end := h.window(rs, words, w)
		frag := Fragment{Field: field, Text: string(rs[start:end])}
		for _, m := range words {
			if m.matched && m.start >= start && m.end <= end {
				frag.Matches = append(frag.Matches, Span{Start: m.start - start, End: m.end - start})
			}
		}
		out = append(out, frag)
		coveredTo = end
	}
	return out
}

// window centers a fragment on w and snaps both ends to word boundaries.
func (h *Highlighter) window(rs []rune, words []word, w word) (int, int) {
	if len(rs) <= h.fragmentSize {
		return 0, len(rs)
	}
	half := (h.fragmentSize - (w.end - w.start)) / 2
	lo := max(0, w.start-half)
	hi := min(len(rs), lo+h.fragmentSize)
	if hi == len(rs) {
		lo = max(0, hi-h.fragmentSize)
	}

	start := w.start
	for _, x := range words {
		if x.start >= lo {
			start = min(x.start, w.start)
			break
		}
	}
	end := w.end
	for _, x := range words {
		if x.end <= hi && x.end > end {
			end = x.end
		}
	}
	return start, end
}

func (h *Highlighter) matches(tok string) bool {
	for _, term := range h.terms {
		if candidate.MatchesTerm(tok, term) {
			return true
		}
	}
	return false
}

func scanWords(rs []rune) []word {
	var words []word
	start := -1
	for i, r := range rs {
		inWord := wordRune(r) || (r == '.' && start >= 0 && i+1 < len(rs) && alnum(rs[i+1]))
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			words = append(words, word{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, word{start: start, end: len(rs)})
	}
	return words
}

func wordRune(r rune) bool {
	return alnum(r) || r == '+' || r == '#'
}

// alnum reports whether r can follow an inner dot ("node.js", "asp.net").
func alnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
