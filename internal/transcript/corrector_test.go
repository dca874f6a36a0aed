package transcript_test

import (
	"context"
	"strings"
	"testing"

	"github.com/voxloop/voxloop/internal/transcript"
	"github.com/voxloop/voxloop/internal/transcript/phonetic"
)

// tableMatch is one scripted entry for tableMatcher.
type tableMatch struct {
	term string
	conf float64
}

// tableMatcher is a scripted [transcript.Matcher]: it matches exactly the
// windows listed in its table, so corrector tests do not depend on phonetic
// encoding details.
type tableMatcher struct {
	matches map[string]tableMatch
}

func (m *tableMatcher) Match(word string, terms []string) (string, float64, bool) {
	if hit, ok := m.matches[strings.ToLower(word)]; ok {
		return hit.term, hit.conf, true
	}
	return word, 0, false
}

func TestCorrector_SingleWordSubstitution(t *testing.T) {
	t.Parallel()
	m := &tableMatcher{matches: map[string]tableMatch{
		"meridean": {"Meridian", 0.95},
	}}
	c := transcript.New(m, []string{"Meridian"})

	got, corrections, err := c.CorrectDetailed(context.Background(), "send the report to meridean please")
	if err != nil {
		t.Fatalf("CorrectDetailed() error = %v", err)
	}
	if want := "send the report to Meridian please"; got != want {
		t.Errorf("corrected = %q, want %q", got, want)
	}
	if len(corrections) != 1 {
		t.Fatalf("corrections = %v, want exactly one", corrections)
	}
	if corrections[0].Original != "meridean" || corrections[0].Corrected != "Meridian" {
		t.Errorf("correction = %+v, want meridean -> Meridian", corrections[0])
	}
}

func TestCorrector_MultiWordTerm(t *testing.T) {
	t.Parallel()
	m := &tableMatcher{matches: map[string]tableMatch{
		"cloud harber": {"Cloud Harbor", 0.97},
	}}
	c := transcript.New(m, []string{"Cloud Harbor"})

	got, corrections, err := c.CorrectDetailed(context.Background(), "deploy it to cloud harber today")
	if err != nil {
		t.Fatalf("CorrectDetailed() error = %v", err)
	}
	if want := "deploy it to Cloud Harbor today"; got != want {
		t.Errorf("corrected = %q, want %q", got, want)
	}
	if len(corrections) != 1 || corrections[0].Original != "cloud harber" {
		t.Errorf("corrections = %v, want the two-word window", corrections)
	}
}

func TestCorrector_TightWindowBeatsAbsorbingNeighbor(t *testing.T) {
	t.Parallel()
	// The matcher (over)matches both the bare word and a window that drags in
	// its neighbor. The alignment must keep "about" and substitute only the
	// misheard word.
	m := &tableMatcher{matches: map[string]tableMatch{
		"meridean":       {"Meridian", 0.95},
		"about meridean": {"Meridian", 0.95},
	}}
	c := transcript.New(m, []string{"Meridian"})

	got, _, err := c.CorrectDetailed(context.Background(), "a note about meridean")
	if err != nil {
		t.Fatalf("CorrectDetailed() error = %v", err)
	}
	if want := "a note about Meridian"; got != want {
		t.Errorf("corrected = %q, want %q", got, want)
	}
}

func TestCorrector_ExactHitRecordsNoCorrection(t *testing.T) {
	t.Parallel()
	m := &tableMatcher{matches: map[string]tableMatch{
		"meridian": {"Meridian", 1.0},
	}}
	c := transcript.New(m, []string{"Meridian"})

	got, corrections, err := c.CorrectDetailed(context.Background(), "meridian is ready")
	if err != nil {
		t.Fatalf("CorrectDetailed() error = %v", err)
	}
	if want := "Meridian is ready"; got != want {
		t.Errorf("corrected = %q, want canonical casing %q", got, want)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections = %v, want none for a case-only change", corrections)
	}
}

func TestCorrector_EmptyVocabularyPassesThrough(t *testing.T) {
	t.Parallel()
	c := transcript.New(&tableMatcher{}, nil)

	got, corrections, err := c.CorrectDetailed(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("CorrectDetailed() error = %v", err)
	}
	if got != "anything at all" || len(corrections) != 0 {
		t.Errorf("got %q with %v, want unchanged passthrough", got, corrections)
	}
}

func TestCorrector_CancelledContext(t *testing.T) {
	t.Parallel()
	c := transcript.New(&tableMatcher{}, []string{"Meridian"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Correct(ctx, "some text"); err == nil {
		t.Fatal("Correct() with cancelled context error = nil, want error")
	}
}

func TestCorrector_SetVocabularySwapsLive(t *testing.T) {
	t.Parallel()
	m := &tableMatcher{matches: map[string]tableMatch{
		"meridean": {"Meridian", 0.95},
	}}
	c := transcript.New(m, nil)

	got, _ := c.Correct(context.Background(), "ping meridean")
	if got != "ping meridean" {
		t.Fatalf("corrected = %q before vocabulary was set, want passthrough", got)
	}

	c.SetVocabulary([]string{"Meridian"})
	got, _ = c.Correct(context.Background(), "ping meridean")
	if got != "ping Meridian" {
		t.Errorf("corrected = %q after SetVocabulary, want substitution", got)
	}
}

func TestCorrector_WithPhoneticMatcher(t *testing.T) {
	t.Parallel()
	// End-to-end with the real matcher: a one-letter misspelling of a
	// vocabulary term shares its phonetic code and must be corrected.
	c := transcript.New(phonetic.New(), []string{"Meridian", "Thornbury"})

	got, err := c.Correct(context.Background(), "ask meridean for the keys")
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if !strings.Contains(got, "Meridian") {
		t.Errorf("corrected = %q, want it to contain Meridian", got)
	}
}
