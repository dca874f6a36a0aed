package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/voxloop/voxloop/pkg/memory"
)

// Record implements [memory.TurnStore]. It appends turn to the turns table.
// A turn with an empty embedding is stored with a NULL vector and excluded
// from similarity search.
func (s *Store) Record(ctx context.Context, turn memory.Turn) error {
	const q = `
		INSERT INTO conversation_turns
		    (session_id, transcript, raw_transcript, response, embedding, timestamp, listen_ns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var embedding any
	if len(turn.Embedding) > 0 {
		embedding = pgvector.NewVector(turn.Embedding)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.pool.Exec(ctx, q,
		turn.SessionID,
		turn.Transcript,
		turn.RawTranscript,
		turn.Response,
		embedding,
		ts,
		turn.ListenDuration.Nanoseconds(),
	)
	if err != nil {
		return fmt.Errorf("turn store: record: %w", err)
	}
	return nil
}

// Recent implements [memory.TurnStore]. It returns all turns for sessionID
// whose timestamp is no earlier than time.Now()-within, ordered
// chronologically (oldest first).
func (s *Store) Recent(ctx context.Context, sessionID string, within time.Duration) ([]memory.Turn, error) {
	const q = `
		SELECT id, session_id, transcript, raw_transcript, response, timestamp, listen_ns
		FROM   conversation_turns
		WHERE  session_id = $1
		  AND  timestamp  >= now() - ($2::bigint * interval '1 microsecond')
		ORDER  BY timestamp`

	rows, err := s.pool.Query(ctx, q, sessionID, within.Microseconds())
	if err != nil {
		return nil, fmt.Errorf("turn store: recent: %w", err)
	}
	return collectTurns(rows)
}

// Search implements [memory.TurnStore]. It performs a PostgreSQL full-text
// search over the combined transcript and response text and applies optional
// filters from opts.
//
// The query is passed to plainto_tsquery so no special operator syntax is
// required.
func (s *Store) Search(ctx context.Context, query string, opts memory.SearchOpts) ([]memory.Turn, error) {
	args := []any{query} // $1 = FTS query string
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{
		"to_tsvector('english', transcript || ' ' || response) @@ plainto_tsquery('english', $1)",
	}
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(opts.SessionID))
	}
	if !opts.After.IsZero() {
		conditions = append(conditions, "timestamp > "+next(opts.After))
	}
	if !opts.Before.IsZero() {
		conditions = append(conditions, "timestamp < "+next(opts.Before))
	}

	q := "SELECT id, session_id, transcript, raw_transcript, response, timestamp, listen_ns\n" +
		"FROM   conversation_turns\n" +
		"WHERE  " + strings.Join(conditions, "\n  AND  ") + "\n" +
		"ORDER  BY timestamp"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf("\nLIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("turn store: search: %w", err)
	}
	return collectTurns(rows)
}

// SearchSimilar implements [memory.TurnStore]. It finds the topK turns whose
// embeddings are closest (cosine distance) to the supplied query embedding,
// optionally filtered by filter.
//
// Results are ordered by ascending cosine distance (most similar first).
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, topK int, filter memory.TurnFilter) ([]memory.TurnResult, error) {
	queryVec := pgvector.NewVector(embedding)

	args := []any{queryVec} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conditions := []string{"embedding IS NOT NULL"}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = "+next(filter.SessionID))
	}
	if !filter.After.IsZero() {
		conditions = append(conditions, "timestamp > "+next(filter.After))
	}
	if !filter.Before.IsZero() {
		conditions = append(conditions, "timestamp < "+next(filter.Before))
	}

	args = append(args, topK)
	limitArg := fmt.Sprintf("$%d", len(args))

	q := fmt.Sprintf(`
		SELECT id, session_id, transcript, raw_transcript, response, embedding, timestamp, listen_ns,
		       embedding <=> $1 AS distance
		FROM   conversation_turns
		WHERE  %s
		ORDER  BY distance
		LIMIT  %s`, strings.Join(conditions, "\n  AND  "), limitArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("turn store: search similar: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TurnResult, error) {
		var (
			tr       memory.TurnResult
			vec      pgvector.Vector
			listenNS int64
		)
		if err := row.Scan(
			&tr.Turn.ID,
			&tr.Turn.SessionID,
			&tr.Turn.Transcript,
			&tr.Turn.RawTranscript,
			&tr.Turn.Response,
			&vec,
			&tr.Turn.Timestamp,
			&listenNS,
			&tr.Distance,
		); err != nil {
			return memory.TurnResult{}, err
		}
		tr.Turn.Embedding = vec.Slice()
		tr.Turn.ListenDuration = time.Duration(listenNS)
		return tr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("turn store: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.TurnResult{}
	}
	return results, nil
}

// collectTurns scans pgx rows into a slice of Turn values. The embedding
// column is not part of log reads.
func collectTurns(rows pgx.Rows) ([]memory.Turn, error) {
	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Turn, error) {
		var (
			t        memory.Turn
			listenNS int64
		)
		if err := row.Scan(
			&t.ID,
			&t.SessionID,
			&t.Transcript,
			&t.RawTranscript,
			&t.Response,
			&t.Timestamp,
			&listenNS,
		); err != nil {
			return memory.Turn{}, err
		}
		t.ListenDuration = time.Duration(listenNS)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("turn store: scan rows: %w", err)
	}
	if turns == nil {
		turns = []memory.Turn{}
	}
	return turns, nil
}
