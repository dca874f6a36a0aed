package postgres_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/voxloop/voxloop/pkg/memory"
	"github.com/voxloop/voxloop/pkg/memory/postgres"
)

const testEmbeddingDim = 4

// testDSN returns the test database DSN from the environment, or skips the
// test if VOXLOOP_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VOXLOOP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VOXLOOP_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
// It calls t.Cleanup to close the store when the test finishes.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	// Use a bare pool to drop and recreate the schema.
	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	if _, err := cleanPool.Exec(ctx, "DROP TABLE IF EXISTS conversation_turns CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}

	store, err := postgres.NewStore(ctx, dsn, testEmbeddingDim)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// mustPool opens a pgxpool with pgvector types registered.
func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// best-effort: pgvector may not be installed yet on a fresh DB
		_ = pgxvec.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := "session-1"
	now := time.Now()
	turns := []memory.Turn{
		{
			SessionID:      sessionID,
			Transcript:     "what's on my calendar tomorrow",
			RawTranscript:  "whats on my calender tomorrow",
			Response:       "You have two meetings in the morning.",
			Timestamp:      now.Add(-10 * time.Minute),
			ListenDuration: 2 * time.Second,
		},
		{
			SessionID:      sessionID,
			Transcript:     "move the first one to the afternoon",
			Response:       "Done, it now starts at three.",
			Timestamp:      now.Add(-1 * time.Minute),
			ListenDuration: 1500 * time.Millisecond,
		},
	}
	for _, turn := range turns {
		if err := store.Record(ctx, turn); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	// A wide window returns both turns, oldest first.
	recent, err := store.Recent(ctx, sessionID, 30*time.Minute)
	if err != nil {
		t.Fatalf("Recent(30m): %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(30m): want 2, got %d", len(recent))
	}
	if recent[0].Transcript != turns[0].Transcript {
		t.Errorf("Recent order: first = %q, want oldest turn", recent[0].Transcript)
	}
	if recent[0].ID == 0 {
		t.Error("Recent: ID not assigned")
	}
	if recent[0].RawTranscript != turns[0].RawTranscript {
		t.Errorf("RawTranscript: got %q, want %q", recent[0].RawTranscript, turns[0].RawTranscript)
	}
	if recent[0].ListenDuration != turns[0].ListenDuration {
		t.Errorf("ListenDuration: got %v, want %v", recent[0].ListenDuration, turns[0].ListenDuration)
	}

	// A narrow window returns only the last turn.
	narrow, err := store.Recent(ctx, sessionID, 5*time.Minute)
	if err != nil {
		t.Fatalf("Recent(5m): %v", err)
	}
	if len(narrow) != 1 || narrow[0].Response != turns[1].Response {
		t.Errorf("Recent(5m) = %v, want only the latest turn", narrow)
	}

	// A different session sees nothing.
	other, err := store.Recent(ctx, "other-session", 30*time.Minute)
	if err != nil {
		t.Fatalf("Recent other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Recent other: want 0, got %d", len(other))
	}
}

func TestStore_Search(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := "search-session"
	now := time.Now()
	seed := []memory.Turn{
		{SessionID: sessionID, Transcript: "remind me to water the plants", Response: "Reminder set for this evening.", Timestamp: now.Add(-5 * time.Minute)},
		{SessionID: sessionID, Transcript: "how long is the flight to Lisbon", Response: "About two and a half hours.", Timestamp: now.Add(-4 * time.Minute)},
		{SessionID: "other", Transcript: "water pressure is low again", Response: "I can log a maintenance request.", Timestamp: now.Add(-3 * time.Minute)},
	}
	for _, turn := range seed {
		if err := store.Record(ctx, turn); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Search(ctx, "flight Lisbon", memory.SearchOpts{SessionID: sessionID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Transcript, "Lisbon") {
		t.Errorf("Search(flight Lisbon) = %v, want the Lisbon turn", got)
	}

	// The session filter excludes the other session's match.
	got, err = store.Search(ctx, "water", memory.SearchOpts{SessionID: sessionID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Transcript, "plants") {
		t.Errorf("Search(water) = %v, want only the in-session turn", got)
	}

	// The response text is searchable too.
	got, err = store.Search(ctx, "maintenance request", memory.SearchOpts{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search(maintenance request) = %v, want the response-side match", got)
	}

	// Limit caps results.
	got, err = store.Search(ctx, "the", memory.SearchOpts{Limit: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) > 1 {
		t.Errorf("Search with Limit 1 returned %d rows", len(got))
	}
}

func TestStore_SearchSimilar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := "vector-session"
	now := time.Now()
	seed := []memory.Turn{
		{SessionID: sessionID, Transcript: "unit x", Response: "r", Embedding: []float32{1, 0, 0, 0}, Timestamp: now.Add(-3 * time.Minute)},
		{SessionID: sessionID, Transcript: "unit y", Response: "r", Embedding: []float32{0, 1, 0, 0}, Timestamp: now.Add(-2 * time.Minute)},
		// Recorded without an embedding: must never appear in results.
		{SessionID: sessionID, Transcript: "no vector", Response: "r", Timestamp: now.Add(-1 * time.Minute)},
	}
	for _, turn := range seed {
		if err := store.Record(ctx, turn); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	results, err := store.SearchSimilar(ctx, []float32{0.9, 0.1, 0, 0}, 10, memory.TurnFilter{SessionID: sessionID})
	if err != nil {
		t.Fatalf("SearchSimilar: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("SearchSimilar: want 2 embedded turns, got %d", len(results))
	}
	if results[0].Turn.Transcript != "unit x" {
		t.Errorf("SearchSimilar order: first = %q, want the closest vector", results[0].Turn.Transcript)
	}
	if results[0].Distance >= results[1].Distance {
		t.Errorf("SearchSimilar: distances not ascending: %v then %v", results[0].Distance, results[1].Distance)
	}
	if len(results[0].Turn.Embedding) != testEmbeddingDim {
		t.Errorf("SearchSimilar: embedding not round-tripped, got %v", results[0].Turn.Embedding)
	}

	// topK caps results.
	capped, err := store.SearchSimilar(ctx, []float32{1, 0, 0, 0}, 1, memory.TurnFilter{})
	if err != nil {
		t.Fatalf("SearchSimilar topK: %v", err)
	}
	if len(capped) != 1 {
		t.Errorf("SearchSimilar topK=1: got %d results", len(capped))
	}

	// A time filter excludes older turns.
	filtered, err := store.SearchSimilar(ctx, []float32{1, 0, 0, 0}, 10, memory.TurnFilter{
		SessionID: sessionID,
		After:     now.Add(-150 * time.Second),
	})
	if err != nil {
		t.Fatalf("SearchSimilar filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Turn.Transcript != "unit y" {
		t.Errorf("SearchSimilar with After filter = %v, want only unit y", filtered)
	}
}
