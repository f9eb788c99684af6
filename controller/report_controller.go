package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/models"
	"github/itish2003/resultdocs/report"
	"github/itish2003/resultdocs/services"
)

// ReportController handles the HTTP requests for the reports API. Codec
// endpoints work on the request body alone; the rest delegate to the
// ReportService.
type ReportController struct {
	reportService services.ReportService
	separator     string
	renderOpts    report.RenderOptions
	logger        *zap.Logger
}

// NewReportController creates a ReportController. separator is used when a
// request names none and the markdown carries no separator token.
func NewReportController(service services.ReportService, separator string, renderOpts report.RenderOptions, logger *zap.Logger) *ReportController {
	return &ReportController{
		reportService: service,
		separator:     separator,
		renderOpts:    renderOpts,
		logger:        logger.Named("controller"),
	}
}

// ParseReports is the Gin handler for POST /api/v1/reports/parse.
func (c *ReportController) ParseReports(ctx *gin.Context) {
	var req models.ParseReportsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	sep := c.resolveSeparator(req.Markdown, req.Separator)
	docs := parsedDocuments(report.ParseBundle(req.Markdown, sep))
	if len(docs) == 0 {
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No Result Documents found in markdown"})
		return
	}
	ctx.JSON(http.StatusOK, models.ParseReportsResponse{
		Separator: sep,
		Count:     len(docs),
		Documents: docs,
	})
}

// ValidateReports is the Gin handler for POST /api/v1/reports/validate.
// The bundle is valid when every part parses and has no error-level issues.
func (c *ReportController) ValidateReports(ctx *gin.Context) {
	var req models.ParseReportsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	docs := parsedDocuments(report.ParseBundle(req.Markdown, c.resolveSeparator(req.Markdown, req.Separator)))
	valid := len(docs) > 0
	for _, d := range docs {
		if d.Error != "" || report.HasErrors(d.Issues) {
			valid = false
		}
	}
	ctx.JSON(http.StatusOK, models.ValidateReportsResponse{Valid: valid, Documents: docs})
}

// RenderReports is the Gin handler for POST /api/v1/reports/render.
func (c *ReportController) RenderReports(ctx *gin.Context) {
	var req models.RenderReportsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	sep := req.Separator
	if sep == "" {
		sep = c.separator
	}
	markdown, err := report.RenderBundle(req.Documents, sep, c.renderOpts)
	if err != nil {
		c.logger.Error("render failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render reports"})
		return
	}
	ctx.JSON(http.StatusOK, models.RenderReportsResponse{Markdown: markdown})
}

// IngestReport is the Gin handler for POST /api/v1/reports.
func (c *ReportController) IngestReport(ctx *gin.Context) {
	var req models.IngestReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.reportService.IngestReport(ctx.Request.Context(), req)
	switch {
	case err == nil:
		ctx.JSON(http.StatusCreated, response)
	case errors.Is(err, services.ErrInvalidFilename):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidReport):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrReportExists):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.logger.Error("ingest failed", zap.String("file", req.Filename), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest report"})
	}
}

// DeleteReport is the Gin handler for DELETE /api/v1/reports/:filename.
func (c *ReportController) DeleteReport(ctx *gin.Context) {
	filename := ctx.Param("filename")
	err := c.reportService.DeleteReport(ctx.Request.Context(), filename)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully", "filename": filename})
	case errors.Is(err, services.ErrInvalidFilename):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrReportNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.logger.Error("delete failed", zap.String("file", filename), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
	}
}

// ListReports is the Gin handler for GET /api/v1/reports.
func (c *ReportController) ListReports(ctx *gin.Context) {
	response, err := c.reportService.ListReports(ctx.Request.Context())
	if err != nil {
		c.logger.Error("list failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve reports"})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// SearchReports is the Gin handler for POST /api/v1/search.
func (c *ReportController) SearchReports(ctx *gin.Context) {
	var req models.SearchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.reportService.SearchReports(ctx.Request.Context(), req)
	if err != nil {
		c.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search reports"})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// GetStats is the Gin handler for GET /api/v1/stats.
func (c *ReportController) GetStats(ctx *gin.Context) {
	response, err := c.reportService.GetStats(ctx.Request.Context())
	if err != nil {
		c.logger.Error("stats failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

func (c *ReportController) resolveSeparator(markdown, requested string) string {
	return report.SeparatorFor(markdown, requested, c.separator)
}

func parsedDocuments(entries []report.BundleEntry) []models.ParsedDocument {
	docs := make([]models.ParsedDocument, 0, len(entries))
	for _, entry := range entries {
		pd := models.ParsedDocument{Index: entry.Index}
		if entry.Err != nil {
			pd.Error = entry.Err.Error()
			docs = append(docs, pd)
			continue
		}
		doc := entry.Document
		pd.Document = &doc
		if fe, ok := doc.SummaryError(); ok {
			pd.SummaryError = fe
		}
		pd.Issues = report.Validate(doc)
		docs = append(docs, pd)
	}
	return docs
}
