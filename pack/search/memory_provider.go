package search

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryProvider is an in-memory implementation of Provider for testing
// and offline runs.
type MemoryProvider struct {
	mu        sync.RWMutex
	documents []Result
	failWith  error
	queries   []Query
}

// NewMemoryProvider creates a new in-memory search provider seeded with documents.
func NewMemoryProvider(documents ...Result) *MemoryProvider {
	return &MemoryProvider{
		documents: append([]Result(nil), documents...),
	}
}

// Name returns the provider name.
func (p *MemoryProvider) Name() string {
	return "memory"
}

// Add appends documents to the corpus.
func (p *MemoryProvider) Add(documents ...Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents = append(p.documents, documents...)
}

// FailWith makes every subsequent search return err (nil clears it).
func (p *MemoryProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Queries returns the queries received so far.
func (p *MemoryProvider) Queries() []Query {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Query(nil), p.queries...)
}

// Search ranks documents by how many query terms appear in their title
// or snippet.
func (p *MemoryProvider) Search(ctx context.Context, query Query) ([]Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if query.Text == "" {
		return nil, ErrEmptyQuery
	}

	p.mu.Lock()
	p.queries = append(p.queries, query)
	failWith := p.failWith
	p.mu.Unlock()

	if failWith != nil {
		return nil, failWith
	}

	terms := strings.Fields(strings.ToLower(query.Text))

	p.mu.RLock()
	defer p.mu.RUnlock()

	type scored struct {
		doc   Result
		score int
		order int
	}
	hits := make([]scored, 0)
	for i, doc := range p.documents {
		text := strings.ToLower(doc.Title + " " + doc.Snippet)
		score := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score, order: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = h.doc
		results[i].Position = i + 1
	}
	return limit(results, query.Num), nil
}
