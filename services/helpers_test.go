package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/models"
	"github/itish2003/resultdocs/report"
)

var embedKeywords = []string{"转录", "预算", "credits"}

// keywordEmbedder maps text to one dimension per keyword it contains, plus a
// small constant so no vector is zero.
type keywordEmbedder struct {
	calls atomic.Int64
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	k.calls.Add(1)
	vec := make([]float32, len(embedKeywords)+1)
	for i, kw := range embedKeywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	vec[len(embedKeywords)] = 0.1
	return vec, nil
}

var processedAt = time.Date(2025, 6, 12, 9, 30, 15, 0, time.FixedZone("CST", 8*3600))

func sampleDoc(name, summary string, mindMap report.MindMap) report.ResultDocument {
	doc := report.NewResultDocument("/Users/demo/Recordings/"+name+".m4a", processedAt)
	doc.Summary = summary
	doc.MindMap = mindMap
	doc.Anonymization = report.NewAnonymizationMap(report.Replacement{Original: "张三", Placeholder: "[PERSON_1]"})
	return doc
}

func budgetDoc() report.ResultDocument {
	return sampleDoc("budget_review", "本次会议讨论了季度预算。", report.GeneratedMindMap("- 预算\n  - 第三季度"))
}

func failedDoc() report.ResultDocument {
	return sampleDoc("meeting_0612",
		`转录失败: Error Domain=com.apple.coreaudio.avfaudio Code=1685348671 "(null)"`,
		report.FailedMindMap(402, `{"error":{"message":"Insufficient credits","code":402}}`))
}

func bundleMarkdown(t *testing.T, docs ...report.ResultDocument) string {
	t.Helper()
	md, err := report.RenderBundle(docs, report.DefaultSeparator, report.RenderOptions{})
	require.NoError(t, err)
	return md
}

var testIndexingOptions = IndexingOptions{
	Separator:    report.DefaultSeparator,
	ChunkSize:    200,
	ChunkOverlap: 20,
}

func newTestIndexer(t *testing.T) (*ReportIndexingService, *MemoryIndex, *keywordEmbedder) {
	t.Helper()
	index := NewMemoryIndex()
	embedder := &keywordEmbedder{}
	indexer := NewReportIndexingService(index, embedder, testIndexingOptions, zap.NewNop())
	return indexer, index, embedder
}

var errBackendDown = errors.New("backend unavailable")

// failingEmbedder fails its failOn-th call and delegates every other one.
type failingEmbedder struct {
	calls    atomic.Int64
	failOn   int64
	keywords keywordEmbedder
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.calls.Add(1) == f.failOn {
		return nil, errBackendDown
	}
	return f.keywords.Embed(ctx, text)
}

// failingIndex fails its failOn-th Add.
type failingIndex struct {
	*MemoryIndex
	adds   atomic.Int64
	failOn int64
}

func (f *failingIndex) Add(ctx context.Context, chunk models.IndexedChunk, embedding []float32) error {
	if f.adds.Add(1) == f.failOn {
		return errBackendDown
	}
	return f.MemoryIndex.Add(ctx, chunk, embedding)
}
