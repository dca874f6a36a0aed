package openai

import (
	"context"
	"testing"
)

// TestNew_RequiresAPIKey verifies that an empty API key is rejected.
func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New("", "text-embedding-3-small"); err == nil {
		t.Fatal("New with empty apiKey: expected error, got nil")
	}
}

// TestModelDimensions_KnownModels verifies dimensions for known models.
func TestModelDimensions_KnownModels(t *testing.T) {
	cases := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
	}
	for _, c := range cases {
		if got := modelDimensions(c.model); got != c.want {
			t.Errorf("modelDimensions(%s) = %d, want %d", c.model, got, c.want)
		}
	}
}

// TestModelDimensions_Unknown verifies that unknown models return a positive default.
func TestModelDimensions_Unknown(t *testing.T) {
	if d := modelDimensions("some-future-model"); d <= 0 {
		t.Errorf("unknown model: expected positive dimensions, got %d", d)
	}
}

// TestDimensions_MethodMatchesHelper verifies Provider.Dimensions() matches
// modelDimensions().
func TestDimensions_MethodMatchesHelper(t *testing.T) {
	p := &Provider{model: "text-embedding-3-large"}
	if got := p.Dimensions(); got != modelDimensions("text-embedding-3-large") {
		t.Errorf("Dimensions() = %d, want %d", got, modelDimensions("text-embedding-3-large"))
	}
}

// TestEmbed_EmptyInputShortCircuits verifies no request is made for an empty
// batch.
func TestEmbed_EmptyInputShortCircuits(t *testing.T) {
	p, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	vecs, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed(empty): %v", err)
	}
	if vecs != nil {
		t.Errorf("Embed(empty) = %v, want nil", vecs)
	}
}
