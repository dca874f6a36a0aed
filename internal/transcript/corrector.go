// Package transcript corrects speech-to-text output against a known
// vocabulary.
//
// Raw transcription is rarely perfect for domain-specific terms: product
// names, personal names, and technical jargon are frequently misheard. The
// [Corrector] aligns whitespace-separated n-grams of the transcript against a
// configured vocabulary using phonetic matching, substituting the canonical
// spelling when a term was plausibly misrecognised. Matching runs in-process
// with no network calls, so it adds no meaningful latency to a turn.
package transcript

import (
	"context"
	"strings"
	"sync"
)

// Matcher resolves a word or short phrase to a known vocabulary term based on
// pronunciation similarity.
//
// Return values: corrected is the best-matching term, confidence is a
// similarity score in [0.0, 1.0], and matched reports whether a sufficiently
// similar term was found. When matched is false, corrected must equal word
// unchanged and confidence must be 0.
//
// Implementations must be safe for concurrent use.
type Matcher interface {
	Match(word string, terms []string) (corrected string, confidence float64, matched bool)
}

// Correction records a single substitution made by the corrector.
type Correction struct {
	// Original is the text span as produced by the transcriber.
	Original string

	// Corrected is the vocabulary term substituted for it.
	Corrected string

	// Confidence is the matcher's similarity score for this substitution.
	Confidence float64
}

// Corrector substitutes misheard vocabulary terms in transcripts. The
// vocabulary can be swapped at runtime; all methods are safe for concurrent
// use.
type Corrector struct {
	matcher Matcher

	mu    sync.RWMutex
	vocab []string
}

// New creates a Corrector matching against vocab.
func New(matcher Matcher, vocab []string) *Corrector {
	c := &Corrector{matcher: matcher}
	c.SetVocabulary(vocab)
	return c
}

// SetVocabulary replaces the active vocabulary. The slice is copied.
func (c *Corrector) SetVocabulary(words []string) {
	cp := make([]string, len(words))
	copy(cp, words)
	c.mu.Lock()
	c.vocab = cp
	c.mu.Unlock()
}

// Correct returns text with misheard vocabulary terms replaced by their
// canonical spelling. With an empty vocabulary the text passes through
// unchanged.
func (c *Corrector) Correct(ctx context.Context, text string) (string, error) {
	corrected, _, err := c.CorrectDetailed(ctx, text)
	return corrected, err
}

// span is one candidate substitution considered during alignment: consume n
// tokens, emit term.
type span struct {
	n    int
	term string
	conf float64
}

// CorrectDetailed is [Corrector.Correct] plus an itemised record of every
// substitution applied. An empty corrections slice means the text needed no
// changes.
//
// The text is tokenised into whitespace-separated words and aligned against
// the vocabulary by dynamic programming: every n-gram window (up to the word
// count of the longest term) is scored by the matcher, and the segmentation
// with the highest total confidence wins. Ties go to the narrowest windows,
// so a match never absorbs neighbouring words it does not need.
func (c *Corrector) CorrectDetailed(ctx context.Context, text string) (string, []Correction, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	c.mu.RLock()
	vocab := c.vocab
	c.mu.RUnlock()

	tokens := strings.Fields(text)
	if len(tokens) == 0 || len(vocab) == 0 {
		return text, nil, nil
	}

	maxTermWords := maxWordCount(vocab)

	// best[i] is the highest total confidence achievable for tokens[i:];
	// pick[i] records the choice that achieves it (n == 0 means the token is
	// copied unchanged).
	best := make([]float64, len(tokens)+1)
	pick := make([]span, len(tokens))

	for i := len(tokens) - 1; i >= 0; i-- {
		best[i] = best[i+1]
		pick[i] = span{}

		maxN := maxTermWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}
		for n := 1; n <= maxN; n++ {
			window := strings.Join(tokens[i:i+n], " ")
			term, conf, ok := c.matcher.Match(window, vocab)
			if !ok {
				continue
			}
			if total := conf + best[i+n]; total > best[i] {
				best[i] = total
				pick[i] = span{n: n, term: term, conf: conf}
			}
		}
	}

	var output []string
	var applied []Correction
	for i := 0; i < len(tokens); {
		p := pick[i]
		if p.n == 0 {
			output = append(output, tokens[i])
			i++
			continue
		}
		window := strings.Join(tokens[i:i+p.n], " ")
		output = append(output, strings.Fields(p.term)...)
		if !strings.EqualFold(window, p.term) {
			applied = append(applied, Correction{
				Original:   window,
				Corrected:  p.term,
				Confidence: p.conf,
			})
		}
		i += p.n
	}

	return strings.Join(output, " "), applied, nil
}

// maxWordCount returns the maximum number of whitespace-separated words in
// any term. Returns 1 when terms is empty.
func maxWordCount(terms []string) int {
	max := 1
	for _, t := range terms {
		if n := len(strings.Fields(t)); n > max {
			max = n
		}
	}
	return max
}
