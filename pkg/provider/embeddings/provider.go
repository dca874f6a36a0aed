// Package embeddings defines the Provider interface for text-embedding
// backends used by the semantic turn index in pkg/memory.
package embeddings

import "context"

// Provider is the abstraction over any embedding backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Embed returns one vector per input text, in input order. All vectors
	// from a given provider have the same dimensionality.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the vectors this provider
	// produces. Used to size the pgvector column at schema bootstrap.
	Dimensions() int
}
