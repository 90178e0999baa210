package candidate

import (
	"reflect"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Développeur", "developpeur"},
		{"Ingénieur Études", "ingenieur etudes"},
		{"ÇA Marche", "ca marche"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenize_CanonicalSymbols(t *testing.T) {
	got := Tokenize("Dev C++ / C#, Node.js et Bac+5.")
	want := []string{"dev", "cplusplus", "csharp", "nodejs", "et", "bacplus5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize("  ,;  "); len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestEdgeNGrams(t *testing.T) {
	got := EdgeNGrams("Java", "jav", "X")
	want := []string{"ja", "jav", "java", "x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EdgeNGrams = %v, want %v", got, want)
	}
}

func TestEdgeNGrams_CapsAtMaxGram(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz"
	grams := EdgeNGrams(long)
	if len(grams) != MaxGram-MinGram+1 {
		t.Fatalf("expected %d grams, got %d", MaxGram-MinGram+1, len(grams))
	}
	if last := grams[len(grams)-1]; len(last) != MaxGram {
		t.Errorf("longest gram has %d runes, want %d", len(last), MaxGram)
	}
}

func TestNormalizeTag(t *testing.T) {
	if got := NormalizeTag("  Île   de France "); got != "ile de france" {
		t.Errorf("NormalizeTag = %q", got)
	}
}

func TestAutoFuzziness(t *testing.T) {
	tests := map[string]int{"go": 0, "js": 0, "java": 1, "react": 1, "python": 2, "développeur": 2}
	for term, want := range tests {
		if got := AutoFuzziness(term); got != want {
			t.Errorf("AutoFuzziness(%q) = %d, want %d", term, got, want)
		}
	}
}

func TestSharedPrefix(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"jave", "java", true},
		{"lava", "java", false},
		{"kava", "java", false},
		{"j", "java", false},
		{"go", "golang", true},
	}
	for _, tc := range tests {
		if got := SharedPrefix(tc.a, tc.b); got != tc.want {
			t.Errorf("SharedPrefix(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMatchesTerm(t *testing.T) {
	tests := []struct {
		tok, term string
		want      bool
	}{
		{"java", "java", true},
		{"developpeurs", "developpeur", true},
		{"jave", "java", true},
		{"lava", "java", false},
		{"kava", "java", false},
		{"golf", "go", false},
		{"pyhton", "python", true},
		{"", "java", false},
	}
	for _, tc := range tests {
		if got := MatchesTerm(tc.tok, tc.term); got != tc.want {
			t.Errorf("MatchesTerm(%q, %q) = %v, want %v", tc.tok, tc.term, got, tc.want)
		}
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"java", "java", 0},
		{"jave", "java", 1},
		{"pyhton", "python", 2},
		{"kitten", "sitting", 3},
		{"", "abc", 3},
	}
	for _, tc := range tests {
		if got := EditDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
