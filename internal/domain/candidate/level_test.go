package candidate

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

func TestSkillLadder_Parse(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"BEGINNER", 1},
		{"intermediate", 2},
		{"Advanced", 3},
		{"EXPERT", 4},
		{"senior", 4},
		{"", Unspecified},
	}
	for _, tc := range tests {
		got, err := SkillLadder.Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSkillLadder_ParseUnknown(t *testing.T) {
	_, err := SkillLadder.Parse("GURU")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := SkillLadder.Lenient("GURU"); got != Unspecified {
		t.Errorf("Lenient = %d, want Unspecified", got)
	}
}

func TestEducationLadder_Synonyms(t *testing.T) {
	for _, in := range []string{"bac+5", "Master", "Ingénieur", "BAC + 5"} {
		got, err := EducationLadder.Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", in, err)
		}
		if EducationLadder.Name(got) != "BAC+5" {
			t.Errorf("Parse(%q) = %s, want BAC+5", in, EducationLadder.Name(got))
		}
	}
}

func TestLanguageLadder_CEFR(t *testing.T) {
	got, err := LanguageLadder.Parse("C2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != LanguageLadder.Top() {
		t.Errorf("C2 = %d, want NATIVE", got)
	}
}

func TestLadder_AtLeast(t *testing.T) {
	adv, _ := SkillLadder.Parse("ADVANCED")
	got := SkillLadder.AtLeast(adv)
	want := []Level{3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AtLeast(ADVANCED) = %v, want %v", got, want)
	}
	if SkillLadder.AtLeast(Unspecified) != nil {
		t.Error("AtLeast(Unspecified) should match any level")
	}
	if got := SkillLadder.AtLeast(SkillLadder.Top() + 1); got != nil {
		t.Errorf("AtLeast above top = %v, want nil", got)
	}
}

func TestLadder_NameOutOfRange(t *testing.T) {
	if got := SkillLadder.Name(42); got != "UNSPECIFIED" {
		t.Errorf("Name(42) = %q", got)
	}
}
