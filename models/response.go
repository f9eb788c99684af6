package models

import "github/itish2003/resultdocs/report"

// ParsedDocument is one part of a parsed bundle. Exactly one of Document and
// Error is set.
type ParsedDocument struct {
	Index        int                      `json:"index"`
	Document     *report.ResultDocument   `json:"document,omitempty"`
	SummaryError *report.FrameworkError   `json:"summary_error,omitempty"`
	Issues       []report.ValidationIssue `json:"issues,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

type ParseReportsResponse struct {
	Separator string           `json:"separator"`
	Count     int              `json:"count"`
	Documents []ParsedDocument `json:"documents"`
}

type RenderReportsResponse struct {
	Markdown string `json:"markdown"`
}

type ValidateReportsResponse struct {
	Valid     bool             `json:"valid"`
	Documents []ParsedDocument `json:"documents"`
}

type IngestReportResponse struct {
	Message   string   `json:"message"`
	Filename  string   `json:"filename"`
	Documents []string `json:"documents"`
}

type ListReportsResponse struct {
	Count   int             `json:"count"`
	Reports []ReportSummary `json:"reports"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Results []IndexedChunk `json:"results"`
}

type StatsResponse struct {
	TotalChunks    int         `json:"total_chunks"`
	TotalReports   int         `json:"total_reports"`
	FailedMindMaps int         `json:"failed_mindmaps"`
	FailuresByCode map[int]int `json:"failures_by_code"`
	SourceFiles    int         `json:"source_files"`
}
