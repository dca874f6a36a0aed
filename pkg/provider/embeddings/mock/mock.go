// Package mock provides a test double for the embeddings package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/voxloop/voxloop/pkg/provider/embeddings"
)

// Provider is a mock implementation of [embeddings.Provider].
type Provider struct {
	mu sync.Mutex

	// Dims is returned by Dimensions. Defaults to 4 when zero.
	Dims int

	// Err, if non-nil, is returned by every Embed call.
	Err error

	// EmbedCalls records the texts of every Embed invocation in order.
	EmbedCalls [][]string
}

// Embed records the call and returns deterministic unit vectors, one per text.
func (p *Provider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	p.EmbedCalls = append(p.EmbedCalls, cp)
	if p.Err != nil {
		return nil, p.Err
	}
	dims := p.Dims
	if dims <= 0 {
		dims = 4
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dims)
		v[i%dims] = 1
		out[i] = v
	}
	return out, nil
}

// Dimensions returns Dims (default 4).
func (p *Provider) Dimensions() int {
	if p.Dims <= 0 {
		return 4
	}
	return p.Dims
}

// Compile-time assertion that Provider implements embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)
