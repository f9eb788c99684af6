package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/resultdocs/models"
)

func chunkFor(id, source string) models.IndexedChunk {
	return models.IndexedChunk{ID: id, Text: "text " + id, Metadata: models.ChunkMetadata{SourceFile: source}}
}

func TestMemoryIndex_QueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	require.NoError(t, idx.Add(ctx, chunkFor("x", "a.md"), []float32{1, 0}))
	require.NoError(t, idx.Add(ctx, chunkFor("y", "a.md"), []float32{0, 1}))
	require.NoError(t, idx.Add(ctx, chunkFor("xy", "b.md"), []float32{1, 1}))

	results, err := idx.Query(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "y", results[0].ID)
	assert.Equal(t, "xy", results[1].ID)

	results, err = idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = idx.Query(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_DeleteBySourceFile(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Add(ctx, chunkFor("1", "a.md"), []float32{1}))
	require.NoError(t, idx.Add(ctx, chunkFor("2", "b.md"), []float32{1}))
	require.NoError(t, idx.Add(ctx, chunkFor("3", "a.md"), []float32{1}))

	require.NoError(t, idx.DeleteBySourceFile(ctx, "a.md"))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := idx.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID)
}

func TestMemoryIndex_RejectsEmptyEmbedding(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	assert.ErrorIs(t, idx.Add(ctx, chunkFor("1", "a.md"), nil), ErrEmptyEmbedding)
	_, err := idx.Query(ctx, nil, 3)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
