package models

import "github/itish2003/resultdocs/report"

// ParseReportsRequest carries a markdown stream of one or more Result Documents.
type ParseReportsRequest struct {
	Markdown  string `json:"markdown" binding:"required"`
	Separator string `json:"separator,omitempty"`
}

type RenderReportsRequest struct {
	Documents []report.ResultDocument `json:"documents" binding:"required,min=1"`
	Separator string                  `json:"separator,omitempty"`
}

// IngestReportRequest stores markdown under Filename in the reports directory.
// With Append set the documents are added to an existing bundle file.
type IngestReportRequest struct {
	Filename string `json:"filename" binding:"required"`
	Markdown string `json:"markdown" binding:"required"`
	Append   bool   `json:"append,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit,omitempty"`
}
