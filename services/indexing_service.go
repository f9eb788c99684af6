package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/models"
	"github/itish2003/resultdocs/report"
)

// IndexingOptions controls how report files are split before embedding.
type IndexingOptions struct {
	Separator    string
	ChunkSize    int
	ChunkOverlap int
}

// ReportIndexingService keeps the report index in sync with a directory of
// Result Document bundles.
type ReportIndexingService struct {
	index     ReportIndex
	embedder  Embedder
	separator string
	splitter  textsplitter.RecursiveCharacter
	logger    *zap.Logger

	locks [pathLockStripes]sync.Mutex
}

const pathLockStripes = 64

// NewReportIndexingService creates a new indexing service.
func NewReportIndexingService(index ReportIndex, embedder Embedder, opts IndexingOptions, logger *zap.Logger) *ReportIndexingService {
	return &ReportIndexingService{
		index:     index,
		embedder:  embedder,
		separator: opts.Separator,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(opts.ChunkSize),
			textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		),
		logger: logger.Named("indexer"),
	}
}

// IndexState holds the current hash of a file in our index.
type IndexState struct {
	Hash string
}

// WatchDirectory re-indexes report files as they change until ctx is done.
func (s *ReportIndexingService) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dirPath, err)
	}
	s.logger.Info("watching directory", zap.String("dir", dirPath))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSupportedFile(event.Name) {
				continue
			}
			s.logger.Debug("watcher event", zap.Stringer("event", event))

			// Editors often write through a temp file and rename, so Create and
			// Write are handled the same.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if _, err := s.IndexFile(ctx, event.Name); err != nil {
					s.logger.Error("failed to index file", zap.String("file", event.Name), zap.Error(err))
				}
			} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := s.RemoveFile(ctx, event.Name); err != nil {
					s.logger.Error("failed to delete records", zap.String("file", event.Name), zap.Error(err))
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", zap.Error(err))

		case <-ctx.Done():
			s.logger.Info("context cancelled, shutting down watcher")
			return nil
		}
	}
}

// ScanAndIndexDirectory syncs the index with the report files under dirPath:
// new and changed files are indexed, unchanged ones skipped and records of
// deleted files removed.
func (s *ReportIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) error {
	s.logger.Info("starting directory scan", zap.String("dir", dirPath))

	indexedFiles, err := s.getCurrentIndexState(ctx)
	if err != nil {
		return fmt.Errorf("could not get current index state: %w", err)
	}
	s.logger.Info("loaded index state", zap.Int("files", len(indexedFiles)))

	localFiles := make(map[string]bool)
	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		localFiles[path] = true
		hash, err := calculateFileHash(path)
		if err != nil {
			s.logger.Warn("could not hash file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if state, ok := indexedFiles[path]; ok && state.Hash == hash {
			return nil
		}
		if _, err := s.indexFileWithHash(ctx, path, hash); err != nil {
			s.logger.Error("failed to index file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking the path %s: %w", dirPath, err)
	}

	for path := range indexedFiles {
		if !localFiles[path] {
			if err := s.RemoveFile(ctx, path); err != nil {
				s.logger.Error("failed to delete records", zap.String("file", path), zap.Error(err))
			}
		}
	}
	s.logger.Info("directory scan finished", zap.Int("files", len(localFiles)))
	return nil
}

// IndexFile replaces the index records of path with its current documents and
// returns the documents that were indexed. Documents that fail to parse are
// logged and skipped.
func (s *ReportIndexingService) IndexFile(ctx context.Context, path string) ([]report.ResultDocument, error) {
	hash, err := calculateFileHash(path)
	if err != nil {
		return nil, fmt.Errorf("could not hash file %s: %w", path, err)
	}
	return s.indexFileWithHash(ctx, path, hash)
}

// RemoveFile deletes every index record of path.
func (s *ReportIndexingService) RemoveFile(ctx context.Context, path string) error {
	unlock := s.lockPath(path)
	defer unlock()

	s.logger.Info("removing file from index", zap.String("file", path))
	return s.index.DeleteBySourceFile(ctx, path)
}

// embeddedChunk is a chunk ready to be added to the index.
type embeddedChunk struct {
	chunk  models.IndexedChunk
	vector []float32
}

// indexFileWithHash embeds every chunk of path before touching the index, so a
// failed embedding leaves the previous records in place. A failed write
// removes whatever was added; a stored file_hash always means the file was
// indexed completely.
func (s *ReportIndexingService) indexFileWithHash(ctx context.Context, path, hash string) ([]report.ResultDocument, error) {
	unlock := s.lockPath(path)
	defer unlock()

	s.logger.Info("indexing file", zap.String("file", path))
	docs, embedded, err := s.processAndEmbedFile(ctx, path, hash)
	if err != nil {
		return nil, err
	}

	if err := s.index.DeleteBySourceFile(ctx, path); err != nil {
		return nil, fmt.Errorf("failed to delete old version of %s: %w", path, err)
	}
	for _, e := range embedded {
		if err := s.index.Add(ctx, e.chunk, e.vector); err != nil {
			if cleanupErr := s.index.DeleteBySourceFile(ctx, path); cleanupErr != nil {
				s.logger.Error("failed to remove partial records",
					zap.String("file", path), zap.Error(cleanupErr))
			}
			return nil, fmt.Errorf("could not add chunk of %s: %w", path, err)
		}
	}
	s.logger.Info("indexed file",
		zap.String("file", path), zap.Int("documents", len(docs)), zap.Int("chunks", len(embedded)))
	return docs, nil
}

func (s *ReportIndexingService) processAndEmbedFile(ctx context.Context, path, hash string) ([]report.ResultDocument, []embeddedChunk, error) {
	entries, err := ExtractReportsFromFile(path, s.separator)
	if err != nil {
		return nil, nil, err
	}

	var (
		docs     []report.ResultDocument
		embedded []embeddedChunk
	)
	for _, entry := range entries {
		if entry.Err != nil {
			s.logger.Warn("skipping unparseable document",
				zap.String("file", path), zap.Int("index", entry.Index), zap.Error(entry.Err))
			continue
		}
		chunks, err := s.embedDocument(ctx, path, hash, entry.Index, entry.Document)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, entry.Document)
		embedded = append(embedded, chunks...)
	}
	return docs, embedded, nil
}

func (s *ReportIndexingService) embedDocument(ctx context.Context, path, hash string, docIndex int, doc report.ResultDocument) ([]embeddedChunk, error) {
	chunks, err := s.splitSummary(doc)
	if err != nil {
		return nil, fmt.Errorf("could not split document %d of %s: %w", docIndex, path, err)
	}

	reportID := ReportID(path, docIndex)
	embedded := make([]embeddedChunk, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("could not embed chunk %d of document %d in %s: %w", i, docIndex, path, err)
		}
		embedded = append(embedded, embeddedChunk{
			chunk: models.IndexedChunk{
				ID:       fmt.Sprintf("%s-chunk%d", uuid.New().String(), i),
				Text:     chunk,
				Metadata: chunkMetadata(path, hash, reportID, docIndex, i, doc),
			},
			vector: vec,
		})
	}
	s.logger.Debug("embedded document",
		zap.String("file", path), zap.String("name", doc.Name), zap.Int("chunks", len(chunks)))
	return embedded, nil
}

// splitSummary chunks the summary text. A document with no summary is still
// indexed through a single chunk built from its heading and mind map line.
func (s *ReportIndexingService) splitSummary(doc report.ResultDocument) ([]string, error) {
	var chunks []string
	if strings.TrimSpace(doc.Summary) != "" {
		split, err := s.splitter.SplitText(doc.Summary)
		if err != nil {
			return nil, err
		}
		for _, c := range split {
			if strings.TrimSpace(c) != "" {
				chunks = append(chunks, c)
			}
		}
	}
	if len(chunks) == 0 {
		fallback := fmt.Sprintf("%s - %s", doc.Name, report.HeadingSuffix)
		if doc.MindMap.Failure != nil {
			fallback += "\n" + doc.MindMap.Failure.Line()
		}
		chunks = []string{fallback}
	}
	return chunks, nil
}

func chunkMetadata(path, hash, reportID string, docIndex, chunkNum int, doc report.ResultDocument) models.ChunkMetadata {
	meta := models.ChunkMetadata{
		SourceFile:    path,
		FileHash:      hash,
		ReportID:      reportID,
		DocIndex:      docIndex,
		ChunkNum:      chunkNum,
		Name:          doc.Name,
		OriginalFile:  doc.SourcePath,
		MindMapStatus: string(doc.MindMap.Status),
	}
	if !doc.ProcessedAt.IsZero() {
		meta.ProcessedAt = doc.ProcessedAt.Format(time.RFC3339Nano)
	}
	if doc.MindMap.Failure != nil {
		meta.MindMapStatusCode = doc.MindMap.Failure.StatusCode
	}
	return meta
}

// ReportID identifies the document at docIndex of a bundle file. It is stable
// across re-indexing of the same path.
func ReportID(path string, docIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path+"#"+strconv.Itoa(docIndex))).String()
}

func (s *ReportIndexingService) getCurrentIndexState(ctx context.Context) (map[string]IndexState, error) {
	chunks, err := s.index.All(ctx)
	if err != nil {
		return nil, err
	}
	state := make(map[string]IndexState)
	for _, chunk := range chunks {
		path := chunk.Metadata.SourceFile
		if path == "" {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = IndexState{Hash: chunk.Metadata.FileHash}
		}
	}
	return state, nil
}

// lockPath serialises indexing work on a single file between the watcher,
// the startup scan and API ingestion. Paths share a fixed set of mutexes, so
// unrelated files may occasionally wait on each other.
func (s *ReportIndexingService) lockPath(path string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	mu := &s.locks[h.Sum32()%pathLockStripes]
	mu.Lock()
	return mu.Unlock
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
