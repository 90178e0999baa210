// Package synonym holds the versioned equivalence tables used at index and query time.
package synonym

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/talentdex/internal/domain/candidate"
)

// Group is a set of equivalent terms. Terms may span several words.
type Group struct {
	ID    string   `yaml:"id"`
	Terms []string `yaml:"terms"`
}

// Table is a versioned list of synonym groups.
type Table struct {
	Version string  `yaml:"version"`
	Groups  []Group `yaml:"groups"`

	// canonical token sequences per group, built by normalize
	phrases [][][]string
}

var groupIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Load reads a table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read synonyms %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse synonyms: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

// New builds a table from groups.
func New(version string, groups ...Group) (*Table, error) {
	t := &Table{Version: version, Groups: groups}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) normalize() error {
	if t.Version == "" {
		return fmt.Errorf("synonyms: version is required")
	}
	seen := make(map[string]bool, len(t.Groups))
	t.phrases = make([][][]string, len(t.Groups))
	for i, g := range t.Groups {
		if !groupIDPattern.MatchString(g.ID) {
			return fmt.Errorf("synonyms: invalid group id %q", g.ID)
		}
		if seen[g.ID] {
			return fmt.Errorf("synonyms: duplicate group id %q", g.ID)
		}
		seen[g.ID] = true
		if len(g.Terms) < 2 {
			return fmt.Errorf("synonyms: group %q needs at least two terms", g.ID)
		}
		for _, term := range g.Terms {
			toks := candidate.Tokenize(term)
			if len(toks) == 0 {
				return fmt.Errorf("synonyms: group %q has an empty term", g.ID)
			}
			t.phrases[i] = append(t.phrases[i], toks)
		}
	}
	return nil
}

// EngineGroups returns, per group id, the single-token terms the engine can
// expand natively. Multi-word terms are expanded by Alternatives instead.
func (t *Table) EngineGroups() map[string][]string {
	out := make(map[string][]string, len(t.Groups))
	for i, g := range t.Groups {
		var terms []string
		seen := make(map[string]bool)
		for _, toks := range t.phrases[i] {
			if len(toks) == 1 && !seen[toks[0]] {
				seen[toks[0]] = true
				terms = append(terms, toks[0])
			}
		}
		if len(terms) > 1 {
			out[t.engineID(g.ID)] = terms
		}
	}
	return out
}

// engineID scopes a group id by table version so a new version replaces the old groups.
func (t *Table) engineID(id string) string {
	return "v" + t.Version + "_" + id
}

// Alternatives returns the token sequences obtained by replacing a multi-word
// term found in tokens (or a single token equivalent to one) with each of its
// equivalents. Replacements that the engine already expands on its own
// (single token for single token) are not returned.
func (t *Table) Alternatives(tokens []string) [][]string {
	if t == nil || len(tokens) == 0 {
		return nil
	}

	var out [][]string
	seen := map[string]bool{strings.Join(tokens, " "): true}

	for _, group := range t.phrases {
		for _, from := range group {
			at := indexOf(tokens, from)
			if at < 0 {
				continue
			}
			for _, to := range group {
				if len(from) == 1 && len(to) == 1 {
					continue
				}
				alt := make([]string, 0, len(tokens)-len(from)+len(to))
				alt = append(alt, tokens[:at]...)
				alt = append(alt, to...)
				alt = append(alt, tokens[at+len(from):]...)
				key := strings.Join(alt, " ")
				if !seen[key] {
					seen[key] = true
					out = append(out, alt)
				}
			}
		}
	}
	return out
}

// Equivalents returns the single-token terms sharing a group with tok, which the
// engine expands on its own.
func (t *Table) Equivalents(tok string) []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, group := range t.phrases {
		singles := singleTokens(group)
		if !contains(singles, tok) {
			continue
		}
		for _, to := range singles {
			if to != tok && !contains(out, to) {
				out = append(out, to)
			}
		}
	}
	return out
}

func singleTokens(group [][]string) []string {
	var out []string
	for _, toks := range group {
		if len(toks) == 1 {
			out = append(out, toks[0])
		}
	}
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// indexOf returns the position of sub inside s, or -1.
func indexOf(s, sub []string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := range sub {
			if s[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
