package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github/itish2003/resultdocs/models"
)

var ErrEmptyEmbedding = errors.New("embedding is empty")

// ReportIndex stores embedded summary chunks of Result Documents.
type ReportIndex interface {
	Add(ctx context.Context, chunk models.IndexedChunk, embedding []float32) error
	DeleteBySourceFile(ctx context.Context, path string) error
	All(ctx context.Context) ([]models.IndexedChunk, error)
	Query(ctx context.Context, embedding []float32, n int) ([]models.IndexedChunk, error)
	Count(ctx context.Context) (int, error)
}

type memoryEntry struct {
	chunk     models.IndexedChunk
	embedding []float32
}

// MemoryIndex is a ReportIndex held in process memory. Query ranks entries by
// cosine similarity; ties keep insertion order.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

var _ ReportIndex = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Add(_ context.Context, chunk models.IndexedChunk, embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memoryEntry{chunk: chunk, embedding: vec})
	return nil
}

func (m *MemoryIndex) DeleteBySourceFile(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.chunk.Metadata.SourceFile != path {
			kept = append(kept, e)
		}
	}
	// Drop references held past the new length.
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = memoryEntry{}
	}
	m.entries = kept
	return nil
}

func (m *MemoryIndex) All(_ context.Context) ([]models.IndexedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := make([]models.IndexedChunk, len(m.entries))
	for i, e := range m.entries {
		chunks[i] = e.chunk
	}
	return chunks, nil
}

func (m *MemoryIndex) Query(_ context.Context, embedding []float32, n int) ([]models.IndexedChunk, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if n <= 0 {
		return []models.IndexedChunk{}, nil
	}

	m.mu.RLock()
	type scored struct {
		chunk models.IndexedChunk
		score float64
	}
	ranked := make([]scored, len(m.entries))
	for i, e := range m.entries {
		ranked[i] = scored{chunk: e.chunk, score: cosineSimilarity(embedding, e.embedding)}
	}
	m.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	chunks := make([]models.IndexedChunk, len(ranked))
	for i, r := range ranked {
		chunks[i] = r.chunk
	}
	return chunks, nil
}

func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// cosineSimilarity compares the common prefix of a and b. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
