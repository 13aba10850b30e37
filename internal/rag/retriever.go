// Package rag retrieves document context for a query by vector similarity.
package rag

import (
	"context"
	"strings"

	"github.com/nexuslab/nexus/internal/knowledge"
	"github.com/nexuslab/nexus/internal/log"
)

// Separator joins retrieved chunks into one context block.
const Separator = "\n\n---\n\n"

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// Embedder turns text into a vector. Defined here by the consumer; the
// embedding package provides the production implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher serves vector similarity queries, most similar first.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, k int) ([]knowledge.Result, error)
}

// Retriever produces a context block for a query, best effort: every failure
// along the way (no store, embedding unavailable, search error, no matches)
// degrades to an empty string and is never surfaced to the user.
type Retriever struct {
	embedder Embedder
	store    Searcher
	topK     int
	logger   log.Logger
}

// New creates a Retriever. store may be nil when the vector store was
// unreachable at startup; retrieval then always returns "".
func New(embedder Embedder, store Searcher, topK int, logger log.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, store: store, topK: topK, logger: logger}
}

// Retrieve returns the top-k most similar stored chunks joined with
// Separator, in store-returned order, or "" when no context is available.
func (r *Retriever) Retrieve(ctx context.Context, query string) string {
	if query == "" || r.store == nil {
		return ""
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Debug("embedding unavailable, skipping retrieval", "error", err)
		return ""
	}

	results, err := r.store.Search(ctx, embedding, r.topK)
	if err != nil {
		r.logger.Debug("vector search failed, skipping retrieval", "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Content
	}
	return strings.Join(parts, Separator)
}
