package services

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/models"
)

// ChromaIndex is a ReportIndex backed by a ChromaDB collection.
type ChromaIndex struct {
	collection chromago.Collection
	logger     *zap.Logger
}

var _ ReportIndex = (*ChromaIndex)(nil)

func NewChromaIndex(collection chromago.Collection, logger *zap.Logger) *ChromaIndex {
	return &ChromaIndex{collection: collection, logger: logger.Named("chroma")}
}

// OpenChromaIndex connects to the ChromaDB server at baseURL and gets or
// creates the named collection. The returned close function releases the client.
func OpenChromaIndex(ctx context.Context, baseURL, collectionName string, logger *zap.Logger) (*ChromaIndex, func() error, error) {
	chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	logger.Info("getting or creating collection", zap.String("collection", collectionName), zap.String("url", baseURL))
	collection, err := chromaClient.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Result Document summaries"),
				chromago.NewStringAttribute("created_by", "resultdocs"),
			),
		),
	)
	if err != nil {
		_ = chromaClient.Close()
		return nil, nil, fmt.Errorf("failed to get or create collection %q: %w", collectionName, err)
	}
	return NewChromaIndex(collection, logger), chromaClient.Close, nil
}

func (c *ChromaIndex) Add(ctx context.Context, chunk models.IndexedChunk, embedding []float32) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}
	meta := chunk.Metadata
	attrs := []*chromago.MetaAttribute{
		chromago.NewStringAttribute("source_file", meta.SourceFile),
		chromago.NewStringAttribute("file_hash", meta.FileHash),
		chromago.NewStringAttribute("report_id", meta.ReportID),
		chromago.NewIntAttribute("doc_index", int64(meta.DocIndex)),
		chromago.NewIntAttribute("chunk_num", int64(meta.ChunkNum)),
		chromago.NewStringAttribute("name", meta.Name),
		chromago.NewStringAttribute("original_file", meta.OriginalFile),
		chromago.NewStringAttribute("processed_at", meta.ProcessedAt),
		chromago.NewStringAttribute("mindmap_status", meta.MindMapStatus),
	}
	if meta.MindMapStatusCode != 0 {
		attrs = append(attrs, chromago.NewIntAttribute("mindmap_status_code", int64(meta.MindMapStatusCode)))
	}

	err := c.collection.Add(ctx,
		chromago.WithIDs(chromago.DocumentID(chunk.ID)),
		chromago.WithTexts(chunk.Text),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithMetadatas(chromago.NewDocumentMetadata(attrs...)),
	)
	if err != nil {
		return fmt.Errorf("failed to add chunk %s to chromadb: %w", chunk.ID, err)
	}
	return nil
}

func (c *ChromaIndex) DeleteBySourceFile(ctx context.Context, path string) error {
	where := chromago.EqString("source_file", path)
	return c.collection.Delete(ctx, chromago.WithWhereDelete(where))
}

func (c *ChromaIndex) All(ctx context.Context) ([]models.IndexedChunk, error) {
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	ids := results.GetIDs()
	documents := results.GetDocuments()
	metadatas := results.GetMetadatas()

	chunks := make([]models.IndexedChunk, 0, len(documents))
	for i := range documents {
		chunk := models.IndexedChunk{Text: documents[i].ContentString()}
		if i < len(ids) {
			chunk.ID = string(ids[i])
		}
		if i < len(metadatas) {
			chunk.Metadata = c.decodeMetadata(metadatas[i])
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// Query returns the n chunks closest to embedding. Chroma query results carry
// no IDs here; chunks are identified by report_id and chunk_num.
func (c *ChromaIndex) Query(ctx context.Context, embedding []float32, n int) ([]models.IndexedChunk, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	results, err := c.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	chunks := []models.IndexedChunk{}
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return chunks, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		chunk := models.IndexedChunk{Text: doc.ContentString()}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			chunk.Metadata = c.decodeMetadata(metadataGroups[0][i])
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (c *ChromaIndex) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

// decodeMetadata converts chroma metadata via JSON; DocumentMetadata exposes
// no typed accessors for every attribute.
func (c *ChromaIndex) decodeMetadata(meta chromago.DocumentMetadata) models.ChunkMetadata {
	var out models.ChunkMetadata
	if meta == nil {
		return out
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		c.logger.Warn("could not marshal chunk metadata", zap.Error(err))
		return out
	}
	if err := json.Unmarshal(jsonBytes, &out); err != nil {
		c.logger.Warn("could not unmarshal chunk metadata", zap.Error(err))
	}
	return out
}
