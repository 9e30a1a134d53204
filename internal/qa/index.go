package qa

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Retriever returns the documents most relevant to a query.
type Retriever interface {
	Query(ctx context.Context, query string, topK int) ([]string, error)
}

// MemoryIndex keeps embedded documents in memory and ranks them by cosine similarity.
type MemoryIndex struct {
	embedder Embedder

	mu        sync.RWMutex
	documents []indexedDocument
}

type indexedDocument struct {
	content   string
	embedding []float32
}

var _ Retriever = (*MemoryIndex)(nil)

func NewMemoryIndex(embedder Embedder) *MemoryIndex {
	if embedder == nil {
		panic("qa: embedder cannot be nil")
	}
	return &MemoryIndex{embedder: embedder}
}

// AddDocuments embeds and stores contents.
func (i *MemoryIndex) AddDocuments(ctx context.Context, contents []string) error {
	if len(contents) == 0 {
		return nil
	}
	vectors, err := i.embedder.Embed(ctx, contents)
	if err != nil {
		return fmt.Errorf("qa: index documents: %w", err)
	}
	if len(vectors) != len(contents) {
		return fmt.Errorf("qa: index documents: got %d embeddings for %d documents", len(vectors), len(contents))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	for n, content := range contents {
		i.documents = append(i.documents, indexedDocument{content: content, embedding: vectors[n]})
	}
	return nil
}

// Len reports how many documents are indexed.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.documents)
}

// Query returns up to topK documents, best match first.
func (i *MemoryIndex) Query(ctx context.Context, query string, topK int) ([]string, error) {
	if topK <= 0 {
		topK = 4
	}
	if i.Len() == 0 {
		return nil, nil
	}
	vectors, err := i.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("qa: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	queryVec := vectors[0]

	type scored struct {
		score   float64
		content string
	}

	i.mu.RLock()
	results := make([]scored, 0, len(i.documents))
	for _, doc := range i.documents {
		results = append(results, scored{score: cosineSimilarity(queryVec, doc.embedding), content: doc.content})
	}
	i.mu.RUnlock()

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].score > results[b].score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	out := make([]string, len(results))
	for n, r := range results {
		out[n] = r.content
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
