package controller

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// NewRouter wires the middleware, the health check and the /api/v1 routes.
func NewRouter(reports *ReportController, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Result Documents API",
			"version": Version,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/reports/parse", reports.ParseReports)       // Parse a bundle into documents
		apiV1.POST("/reports/validate", reports.ValidateReports) // Report issues per document
		apiV1.POST("/reports/render", reports.RenderReports)     // Render documents to markdown
		apiV1.POST("/reports", reports.IngestReport)             // Store and index a bundle
		apiV1.GET("/reports", reports.ListReports)               // List indexed documents
		apiV1.DELETE("/reports/:filename", reports.DeleteReport) // Remove a bundle file
		apiV1.POST("/search", reports.SearchReports)             // Semantic search over summaries
		apiV1.GET("/stats", reports.GetStats)                    // Failure counts by status code
	}
	return router
}
