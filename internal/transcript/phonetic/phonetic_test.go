package phonetic_test

import (
	"testing"

	"github.com/voxloop/voxloop/internal/transcript/phonetic"
)

func TestMatcher_ExactMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Meridian", "Thornbury"}

	corrected, conf, matched := m.Match("meridian", terms)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "meridian")
	}
	if corrected != "Meridian" {
		t.Errorf("Match(%q): corrected=%q, want %q", "meridian", corrected, "Meridian")
	}
	if conf < 0.9 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.9 for an exact match", "meridian", conf)
	}
}

func TestMatcher_PhoneticNearMiss(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Meridian", "Thornbury"}

	// One-vowel misspelling: identical Double Metaphone code, high
	// Jaro-Winkler similarity.
	corrected, conf, matched := m.Match("meridean", terms)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "meridean")
	}
	if corrected != "Meridian" {
		t.Errorf("Match(%q): corrected=%q, want %q", "meridean", corrected, "Meridian")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "meridean", conf)
	}
}

func TestMatcher_SplitWordMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Thornbury", "Meridian"}

	// A single term heard as two words: the space-stripped comparison makes
	// this a perfect fuzzy match.
	corrected, _, matched := m.Match("thorn bury", terms)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "thorn bury")
	}
	if corrected != "Thornbury" {
		t.Errorf("Match(%q): corrected=%q, want %q", "thorn bury", corrected, "Thornbury")
	}
}

func TestMatcher_MultiWordTerm(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Cloud Harbor", "Meridian"}

	corrected, conf, matched := m.Match("cloud harber", terms)
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "cloud harber")
	}
	if corrected != "Cloud Harbor" {
		t.Errorf("Match(%q): corrected=%q, want %q", "cloud harber", corrected, "Cloud Harbor")
	}
	if conf < 0.7 {
		t.Errorf("Match(%q): confidence=%f, want >= 0.7", "cloud harber", conf)
	}
}

func TestMatcher_NoMatch(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	terms := []string{"Meridian", "Thornbury"}

	corrected, conf, matched := m.Match("hello", terms)
	if matched {
		t.Fatalf("Match(%q): matched=true, want false", "hello")
	}
	if corrected != "hello" {
		t.Errorf("Match(%q): corrected=%q, want original word", "hello", corrected)
	}
	if conf != 0 {
		t.Errorf("Match(%q): confidence=%f, want 0", "hello", conf)
	}
}

func TestMatcher_CaseInsensitivity(t *testing.T) {
	t.Parallel()

	m := phonetic.New()
	corrected, _, matched := m.Match("MERIDIAN", []string{"Meridian"})
	if !matched {
		t.Fatalf("Match(%q): matched=false, want true", "MERIDIAN")
	}
	if corrected != "Meridian" {
		t.Errorf("Match(%q): corrected=%q, want the term's own casing", "MERIDIAN", corrected)
	}
}

func TestMatcher_ThresholdFiltering(t *testing.T) {
	t.Parallel()

	// With both thresholds near 1.0, near-misses are rejected.
	m := phonetic.New(
		phonetic.WithPhoneticThreshold(0.99),
		phonetic.WithFuzzyThreshold(0.99),
	)
	if _, _, matched := m.Match("meridean", []string{"Meridian"}); matched {
		t.Fatal("Match with threshold=0.99 should reject a near-miss")
	}
}

func TestMatcher_EmptyInputs(t *testing.T) {
	t.Parallel()

	m := phonetic.New()

	if _, _, matched := m.Match("meridian", nil); matched {
		t.Error("Match with nil terms should return matched=false")
	}
	corrected, conf, matched := m.Match("", []string{"Meridian"})
	if matched || corrected != "" || conf != 0 {
		t.Errorf("Match(empty) = %q, %f, %v; want passthrough with no match", corrected, conf, matched)
	}
}
