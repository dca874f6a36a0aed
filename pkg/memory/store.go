// Package memory defines the persistent conversation memory for voxloop.
//
// Every completed conversation turn (what the user said, what the assistant
// answered) is written to a [TurnStore]. The store doubles as a retrieval
// surface: recent turns can be read back chronologically, searched by
// full-text query, or ranked by embedding similarity when the turn carries a
// pre-computed embedding vector.
//
// The canonical implementation lives in the postgres subpackage; the mock
// subpackage provides a call-recording test double.
package memory

import (
	"context"
	"time"
)

// Turn is one complete conversation exchange: the user's transcribed
// utterance and the assistant's spoken response. It is the atomic unit of
// conversation history.
type Turn struct {
	// ID is the store-assigned identifier. It is zero until the turn has
	// been recorded and is populated on turns read back from the store.
	ID int64

	// SessionID groups turns belonging to one conversation session.
	SessionID string

	// Transcript is the (possibly vocabulary-corrected) user utterance.
	Transcript string

	// RawTranscript is the original uncorrected transcriber output.
	// Preserved for debugging; empty when no correction was applied.
	RawTranscript string

	// Response is the assistant's reply as sent to speech synthesis.
	Response string

	// Embedding is an optional pre-computed embedding of the exchange.
	// Turns without an embedding are excluded from similarity search.
	Embedding []float32

	// Timestamp is when the turn completed.
	Timestamp time.Time

	// ListenDuration is how long audio capture ran for this turn.
	ListenDuration time.Duration
}

// TurnFilter restricts a similarity search. Zero-valued fields are ignored.
type TurnFilter struct {
	// SessionID limits results to a single session.
	SessionID string

	// After excludes turns at or before this instant.
	After time.Time

	// Before excludes turns at or after this instant.
	Before time.Time
}

// SearchOpts refine a full-text [TurnStore.Search]. Zero-valued fields are
// ignored.
type SearchOpts struct {
	// SessionID limits results to a single session.
	SessionID string

	// After excludes turns at or before this instant.
	After time.Time

	// Before excludes turns at or after this instant.
	Before time.Time

	// Limit caps the number of results. Zero means no limit.
	Limit int
}

// TurnResult is a single similarity-search hit.
type TurnResult struct {
	// Turn is the matching turn.
	Turn Turn

	// Distance is the cosine distance between the query embedding and the
	// turn's embedding. Smaller is more similar.
	Distance float64
}

// TurnStore persists conversation turns and serves them back for context
// retrieval. Implementations must be safe for concurrent use.
type TurnStore interface {
	// Record appends a completed turn. The store assigns [Turn.ID].
	Record(ctx context.Context, turn Turn) error

	// Recent returns the turns for sessionID whose timestamp falls within
	// the trailing window, ordered chronologically (oldest first).
	Recent(ctx context.Context, sessionID string, within time.Duration) ([]Turn, error)

	// Search performs a full-text search over transcripts and responses.
	Search(ctx context.Context, query string, opts SearchOpts) ([]Turn, error)

	// SearchSimilar returns the topK turns whose embeddings are closest to
	// embedding, most similar first. Turns recorded without an embedding
	// are never returned.
	SearchSimilar(ctx context.Context, embedding []float32, topK int, filter TurnFilter) ([]TurnResult, error)
}
