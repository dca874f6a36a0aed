// Package mock provides an in-memory test double for [memory.TurnStore].
//
// The mock records every method call for assertion in tests and exposes
// exported fields that control what it returns. It is safe for concurrent use.
//
// Typical usage:
//
//	store := &mock.TurnStore{}
//	store.RecentResult = []memory.Turn{{Transcript: "hello"}}
//
//	// inject store into the system under test …
//
//	if got := store.CallCount("Record"); got != 1 {
//	    t.Errorf("expected 1 Record call, got %d", got)
//	}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/voxloop/voxloop/pkg/memory"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// TurnStore is a configurable test double for [memory.TurnStore].
// All exported *Err fields default to nil (success); all exported *Result
// fields default to nil (empty slice returned).
type TurnStore struct {
	mu sync.Mutex

	// calls records every method invocation in order.
	calls []Call

	// RecordErr is returned by [TurnStore.Record] when non-nil.
	RecordErr error

	// RecentResult is returned by [TurnStore.Recent].
	// When nil, Recent returns an empty non-nil slice.
	RecentResult []memory.Turn

	// RecentErr is returned by [TurnStore.Recent] when non-nil.
	RecentErr error

	// SearchResult is returned by [TurnStore.Search].
	// When nil, Search returns an empty non-nil slice.
	SearchResult []memory.Turn

	// SearchErr is returned by [TurnStore.Search] when non-nil.
	SearchErr error

	// SearchSimilarResult is returned by [TurnStore.SearchSimilar].
	// When nil, SearchSimilar returns an empty non-nil slice.
	SearchSimilarResult []memory.TurnResult

	// SearchSimilarErr is returned by [TurnStore.SearchSimilar] when non-nil.
	SearchSimilarErr error
}

// Calls returns a copy of all recorded method invocations.
func (m *TurnStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *TurnStore) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Recorded returns copies of every turn passed to [TurnStore.Record], in
// call order.
func (m *TurnStore) Recorded() []memory.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []memory.Turn
	for _, c := range m.calls {
		if c.Method == "Record" {
			out = append(out, c.Args[0].(memory.Turn))
		}
	}
	return out
}

// Reset clears all recorded calls without altering response configuration.
func (m *TurnStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Record implements [memory.TurnStore].
func (m *TurnStore) Record(_ context.Context, turn memory.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Record", Args: []any{turn}})
	return m.RecordErr
}

// Recent implements [memory.TurnStore].
func (m *TurnStore) Recent(_ context.Context, sessionID string, within time.Duration) ([]memory.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Recent", Args: []any{sessionID, within}})
	if m.RecentResult == nil {
		return []memory.Turn{}, m.RecentErr
	}
	out := make([]memory.Turn, len(m.RecentResult))
	copy(out, m.RecentResult)
	return out, m.RecentErr
}

// Search implements [memory.TurnStore].
func (m *TurnStore) Search(_ context.Context, query string, opts memory.SearchOpts) ([]memory.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Search", Args: []any{query, opts}})
	if m.SearchResult == nil {
		return []memory.Turn{}, m.SearchErr
	}
	out := make([]memory.Turn, len(m.SearchResult))
	copy(out, m.SearchResult)
	return out, m.SearchErr
}

// SearchSimilar implements [memory.TurnStore].
func (m *TurnStore) SearchSimilar(_ context.Context, embedding []float32, topK int, filter memory.TurnFilter) ([]memory.TurnResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "SearchSimilar", Args: []any{embedding, topK, filter}})
	if m.SearchSimilarResult == nil {
		return []memory.TurnResult{}, m.SearchSimilarErr
	}
	out := make([]memory.TurnResult, len(m.SearchSimilarResult))
	copy(out, m.SearchSimilarResult)
	return out, m.SearchSimilarErr
}

// Ensure TurnStore satisfies the interface at compile time.
var _ memory.TurnStore = (*TurnStore)(nil)
