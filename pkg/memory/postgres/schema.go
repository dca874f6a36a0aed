// Package postgres provides the PostgreSQL-backed implementation of
// [memory.TurnStore].
//
// A single turns table serves both the chronological conversation log and the
// semantic index: full-text search uses a GIN index over transcript and
// response, similarity search uses a pgvector HNSW index over the embedding
// column. The pgvector extension must be available in the target database;
// [Migrate] installs it via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Record(ctx, turn)
//	results, _ := store.SearchSimilar(ctx, queryEmbedding, 5, memory.TurnFilter{})
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlTurns returns the turns DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddlTurns(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS conversation_turns (
    id              BIGSERIAL    PRIMARY KEY,
    session_id      TEXT         NOT NULL,
    transcript      TEXT         NOT NULL,
    raw_transcript  TEXT         NOT NULL DEFAULT '',
    response        TEXT         NOT NULL,
    embedding       vector(%d),
    timestamp       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    listen_ns       BIGINT       NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_turns_session_id
    ON conversation_turns (session_id);

CREATE INDEX IF NOT EXISTS idx_turns_timestamp
    ON conversation_turns (timestamp);

CREATE INDEX IF NOT EXISTS idx_turns_session_timestamp
    ON conversation_turns (session_id, timestamp);

CREATE INDEX IF NOT EXISTS idx_turns_fts
    ON conversation_turns USING GIN (to_tsvector('english', transcript || ' ' || response));

CREATE INDEX IF NOT EXISTS idx_turns_embedding
    ON conversation_turns USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the turns table, its indexes, and the pgvector
// extension exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX
// IF NOT EXISTS) and safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for your
// deployment (e.g., 1536 for OpenAI text-embedding-3-small). Changing this
// value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlTurns(embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
