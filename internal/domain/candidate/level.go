package candidate

import (
	"strings"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// Level is an ordinal position on a Ladder. Zero is the neutral "unspecified" level.
type Level int

// Unspecified is the level assigned when the source has none.
const Unspecified Level = 0

// Ladder is a fixed ordinal scale of named levels.
type Ladder struct {
	kind    string
	names   []string
	aliases map[string]Level
}

func newLadder(kind string, names []string, aliases map[string]Level) Ladder {
	all := make(map[string]Level, len(names)+len(aliases))
	for i, n := range names {
		all[n] = Level(i)
	}
	for k, v := range aliases {
		all[k] = v
	}
	return Ladder{kind: kind, names: names, aliases: all}
}

// Skill, language and education ladders.
var (
	SkillLadder = newLadder("skill",
		[]string{"UNSPECIFIED", "BEGINNER", "INTERMEDIATE", "ADVANCED", "EXPERT"},
		map[string]Level{"JUNIOR": 1, "CONFIRMED": 3, "CONFIRME": 3, "SENIOR": 4})

	LanguageLadder = newLadder("language",
		[]string{"UNSPECIFIED", "BASIC", "CONVERSATIONAL", "FLUENT", "NATIVE"},
		map[string]Level{
			"A1": 1, "A2": 1, "B1": 2, "B2": 3, "C1": 3, "C2": 4,
			"INTERMEDIATE": 2, "PROFESSIONAL": 3, "BILINGUAL": 4,
		})

	EducationLadder = newLadder("education",
		[]string{"UNSPECIFIED", "BAC", "BAC+2", "BAC+3", "BAC+5", "DOCTORATE"},
		map[string]Level{
			"BTS": 2, "DUT": 2, "LICENCE": 3, "BACHELOR": 3,
			"MASTER": 4, "INGENIEUR": 4, "BAC+8": 5, "DOCTORAT": 5, "PHD": 5,
		})
)

// Parse resolves a level name or alias. Empty input yields Unspecified.
func (l Ladder) Parse(s string) (Level, error) {
	key := strings.ToUpper(strings.Join(strings.Fields(Fold(s)), ""))
	if key == "" {
		return Unspecified, nil
	}
	lvl, ok := l.aliases[key]
	if !ok {
		return Unspecified, domain.Validationf("unknown %s level %q", l.kind, s)
	}
	return lvl, nil
}

// Lenient resolves a level name, mapping unknown names to Unspecified.
func (l Ladder) Lenient(s string) Level {
	lvl, err := l.Parse(s)
	if err != nil {
		return Unspecified
	}
	return lvl
}

// Name returns the canonical name for lvl.
func (l Ladder) Name(lvl Level) string {
	if lvl < 0 || int(lvl) >= len(l.names) {
		return l.names[0]
	}
	return l.names[lvl]
}

// Top is the highest level on the ladder.
func (l Ladder) Top() Level { return Level(len(l.names) - 1) }

// AtLeast expands a minimum level into every level with ordinal >= minLevel.
// A minimum of Unspecified returns nil: any level matches. A minimum above
// Top is off the ladder and also returns nil; callers validate it first.
func (l Ladder) AtLeast(minLevel Level) []Level {
	if minLevel <= Unspecified || minLevel > l.Top() {
		return nil
	}
	out := make([]Level, 0, int(l.Top()-minLevel)+1)
	for lvl := minLevel; lvl <= l.Top(); lvl++ {
		out = append(out, lvl)
	}
	return out
}
