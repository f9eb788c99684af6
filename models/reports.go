package models

// ChunkMetadata is stored alongside every indexed summary chunk.
type ChunkMetadata struct {
	SourceFile        string `json:"source_file"`
	FileHash          string `json:"file_hash"`
	ReportID          string `json:"report_id"`
	DocIndex          int    `json:"doc_index"`
	ChunkNum          int    `json:"chunk_num"`
	Name              string `json:"name"`
	OriginalFile      string `json:"original_file"`
	ProcessedAt       string `json:"processed_at"`
	MindMapStatus     string `json:"mindmap_status"`
	MindMapStatusCode int    `json:"mindmap_status_code,omitempty"`
}

// IndexedChunk is a piece of a Result Document held by the report index.
type IndexedChunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ReportSummary describes one indexed Result Document.
type ReportSummary struct {
	ReportID          string `json:"report_id"`
	Name              string `json:"name"`
	SourceFile        string `json:"source_file"`
	DocIndex          int    `json:"doc_index"`
	OriginalFile      string `json:"original_file"`
	ProcessedAt       string `json:"processed_at"`
	MindMapStatus     string `json:"mindmap_status"`
	MindMapStatusCode int    `json:"mindmap_status_code,omitempty"`
	Chunks            int    `json:"chunks"`
}
