package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github/itish2003/resultdocs/models"
	"github/itish2003/resultdocs/report"
)

const (
	defaultSearchLimit = 3
	maxSearchLimit     = 20
)

// ErrInvalidReport is returned when ingested markdown holds no valid Result Document.
var ErrInvalidReport = errors.New("invalid report")

// ReportService interface defines the operations behind the reports API.
type ReportService interface {
	IngestReport(ctx context.Context, req models.IngestReportRequest) (*models.IngestReportResponse, error)
	DeleteReport(ctx context.Context, filename string) error
	ListReports(ctx context.Context) (*models.ListReportsResponse, error)
	SearchReports(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	GetStats(ctx context.Context) (*models.StatsResponse, error)
}

// reportServiceImpl holds the dependencies it needs to do its job
type reportServiceImpl struct {
	index     ReportIndex
	embedder  Embedder
	indexer   *ReportIndexingService
	files     *FileActions
	separator string
	logger    *zap.Logger
}

// NewReportService creates a new report service instance
func NewReportService(index ReportIndex, embedder Embedder, indexer *ReportIndexingService, files *FileActions, separator string, logger *zap.Logger) ReportService {
	return &reportServiceImpl{
		index:     index,
		embedder:  embedder,
		indexer:   indexer,
		files:     files,
		separator: separator,
		logger:    logger.Named("reports"),
	}
}

// IngestReport validates the markdown, stores it in the reports directory and
// indexes it right away instead of waiting for the watcher.
func (r *reportServiceImpl) IngestReport(ctx context.Context, req models.IngestReportRequest) (*models.IngestReportResponse, error) {
	separator, err := r.ingestSeparator(req)
	if err != nil {
		return nil, err
	}
	entries := report.ParseBundle(req.Markdown, separator)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no documents in markdown", ErrInvalidReport)
	}
	docs, err := report.Documents(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	for i, doc := range docs {
		if issues := report.Validate(doc); report.HasErrors(issues) {
			return nil, fmt.Errorf("%w: document %d: %s", ErrInvalidReport, i, errorSummary(issues))
		}
	}

	var path string
	if req.Append {
		path, err = r.files.AppendToBundle(req.Filename, req.Markdown, separator)
	} else {
		path, err = r.files.CreateMarkdownFile(req.Filename, req.Markdown)
	}
	if err != nil {
		return nil, err
	}

	indexed, err := r.indexer.IndexFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("could not index %s: %w", req.Filename, err)
	}
	names := make([]string, len(indexed))
	for i, doc := range indexed {
		names[i] = doc.Name
	}
	r.logger.Info("ingested report", zap.String("file", req.Filename), zap.Int("documents", len(names)))

	return &models.IngestReportResponse{
		Message:   "Report ingested successfully",
		Filename:  req.Filename,
		Documents: names,
	}, nil
}

// ingestSeparator is the token the submitted markdown is split on. When
// appending, an existing bundle keeps its own token and the submitted markdown
// must not use a different one.
func (r *reportServiceImpl) ingestSeparator(req models.IngestReportRequest) (string, error) {
	separator := report.SeparatorFor(req.Markdown, "", r.separator)
	if !req.Append {
		return separator, nil
	}
	existing, err := r.files.ReadMarkdownFile(req.Filename)
	if errors.Is(err, ErrReportNotFound) {
		return separator, nil
	}
	if err != nil {
		return "", err
	}
	bundleSep, ok := report.DetectSeparator(existing)
	if !ok {
		return separator, nil
	}
	if own, ok := report.DetectSeparator(req.Markdown); ok && own != bundleSep {
		return "", fmt.Errorf("%w: separator %s does not match %s used by %s", ErrInvalidReport, own, bundleSep, req.Filename)
	}
	return bundleSep, nil
}

func (r *reportServiceImpl) DeleteReport(ctx context.Context, filename string) error {
	path, err := r.files.DeleteMarkdownFile(filename)
	if err != nil {
		return err
	}
	return r.indexer.RemoveFile(ctx, path)
}

// ListReports groups the indexed chunks back into one entry per document.
func (r *reportServiceImpl) ListReports(ctx context.Context) (*models.ListReportsResponse, error) {
	chunks, err := r.index.All(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.ReportSummary)
	for _, chunk := range chunks {
		meta := chunk.Metadata
		summary, ok := byID[meta.ReportID]
		if !ok {
			summary = &models.ReportSummary{
				ReportID:          meta.ReportID,
				Name:              meta.Name,
				SourceFile:        meta.SourceFile,
				DocIndex:          meta.DocIndex,
				OriginalFile:      meta.OriginalFile,
				ProcessedAt:       meta.ProcessedAt,
				MindMapStatus:     meta.MindMapStatus,
				MindMapStatusCode: meta.MindMapStatusCode,
			}
			byID[meta.ReportID] = summary
		}
		summary.Chunks++
	}

	reports := make([]models.ReportSummary, 0, len(byID))
	for _, s := range byID {
		reports = append(reports, *s)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].SourceFile != reports[j].SourceFile {
			return reports[i].SourceFile < reports[j].SourceFile
		}
		return reports[i].DocIndex < reports[j].DocIndex
	})
	return &models.ListReportsResponse{Count: len(reports), Reports: reports}, nil
}

func (r *reportServiceImpl) SearchReports(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	vec, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}
	results, err := r.index.Query(ctx, vec, limit)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("searched reports", zap.String("query", req.Query), zap.Int("results", len(results)))
	return &models.SearchResponse{Query: req.Query, Results: results}, nil
}

func (r *reportServiceImpl) GetStats(ctx context.Context) (*models.StatsResponse, error) {
	chunks, err := r.index.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.StatsResponse{
		TotalChunks:    len(chunks),
		FailuresByCode: make(map[int]int),
	}
	seenReports := make(map[string]bool)
	seenFiles := make(map[string]bool)
	for _, chunk := range chunks {
		meta := chunk.Metadata
		seenFiles[meta.SourceFile] = true
		if seenReports[meta.ReportID] {
			continue
		}
		seenReports[meta.ReportID] = true
		if meta.MindMapStatus == string(report.MindMapFailed) {
			stats.FailedMindMaps++
			stats.FailuresByCode[meta.MindMapStatusCode]++
		}
	}
	stats.TotalReports = len(seenReports)
	stats.SourceFiles = len(seenFiles)
	return stats, nil
}

func errorSummary(issues []report.ValidationIssue) string {
	var msgs []string
	for _, i := range issues {
		if i.Severity == report.SeverityError {
			msgs = append(msgs, i.String())
		}
	}
	return strings.Join(msgs, "; ")
}
