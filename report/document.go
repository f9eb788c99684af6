// Package report reads and writes Result Documents, the markdown reports left
// behind for each processed audio file, and the bundles that join several of
// them with a separator token.
package report

import (
	"path/filepath"
	"strings"
	"time"
)

// Markdown vocabulary of a Result Document.
const (
	HeadingSuffix      = "处理结果"
	FieldProcessedAt   = "处理时间"
	FieldSourcePath    = "原始文件"
	FieldAnonymization = "匿名化映射"
	SectionSummary     = "内容摘要"
	SectionMindMap     = "思维导图"
	SectionInfo        = "处理信息"
)

// DefaultAttribution closes every rendered document unless overridden.
const DefaultAttribution = "本报告由 resultdocs 自动生成"

// ResultDocument is one processing report for one input media file.
// Values are never modified after parsing; build a new one instead.
type ResultDocument struct {
	Name          string           `json:"name"`
	SourcePath    string           `json:"source_path"`
	ProcessedAt   time.Time        `json:"processed_at"`
	Summary       string           `json:"summary_text"`
	MindMap       MindMap          `json:"mindmap"`
	Anonymization AnonymizationMap `json:"anonymization_map"`
	Extra         []Field          `json:"extra,omitempty"`
	Attribution   string           `json:"attribution,omitempty"`
}

// NewResultDocument names the document after the source file's base name.
func NewResultDocument(sourcePath string, processedAt time.Time) ResultDocument {
	return ResultDocument{
		Name:        DisplayName(sourcePath),
		SourcePath:  sourcePath,
		ProcessedAt: processedAt,
		MindMap:     MindMap{Status: MindMapMissing},
	}
}

// DisplayName is the heading name for a source path: its base name without extension.
func DisplayName(sourcePath string) string {
	base := filepath.Base(strings.TrimSpace(sourcePath))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// SummaryError returns the audio framework failure echoed in the summary, if any.
func (d ResultDocument) SummaryError() (*FrameworkError, bool) {
	return FindFrameworkError(d.Summary)
}

// Failed reports whether any processing step left an error in the document.
func (d ResultDocument) Failed() bool {
	if d.MindMap.Status == MindMapFailed {
		return true
	}
	_, ok := d.SummaryError()
	return ok
}

// ExtraValue returns an unrecognised field kept from the 处理信息 section.
func (d ResultDocument) ExtraValue(key string) (string, bool) {
	for _, f := range d.Extra {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}
