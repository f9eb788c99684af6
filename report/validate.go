package report

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is a problem found in a parsed document.
type ValidationIssue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// Validate checks the invariants a well-formed Result Document holds.
func Validate(doc ResultDocument) []ValidationIssue {
	var issues []ValidationIssue
	add := func(field string, severity Severity, format string, args ...any) {
		issues = append(issues, ValidationIssue{Field: field, Severity: severity, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(doc.Name) == "" {
		add("name", SeverityError, "heading name is empty")
	}
	if doc.ProcessedAt.IsZero() {
		add(FieldProcessedAt, SeverityError, "processing time is missing")
	}
	if strings.TrimSpace(doc.SourcePath) == "" {
		add(FieldSourcePath, SeverityError, "source path is missing")
	} else if name := DisplayName(doc.SourcePath); doc.Name != "" && name != doc.Name && filepathBase(doc.SourcePath) != doc.Name {
		add(FieldSourcePath, SeverityWarning, "heading %q does not match source file %q", doc.Name, name)
	}
	if strings.TrimSpace(doc.Summary) == "" {
		add(SectionSummary, SeverityWarning, "summary is empty")
	}

	switch doc.MindMap.Status {
	case MindMapFailed:
		f := doc.MindMap.Failure
		switch {
		case f == nil:
			add(SectionMindMap, SeverityError, "failure recorded without details")
		default:
			if f.StatusCode < 100 || f.StatusCode > 599 {
				add(SectionMindMap, SeverityError, "status code %d is not an HTTP status", f.StatusCode)
			}
			if strings.TrimSpace(f.Message) == "" {
				add(SectionMindMap, SeverityError, "failure carries no error message")
			} else if f.Body != "" && !strings.Contains(f.Body, f.Message) {
				add(SectionMindMap, SeverityWarning, "message %q not found in payload", f.Message)
			}
		}
	case MindMapGenerated:
		if strings.TrimSpace(doc.MindMap.Content) == "" {
			add(SectionMindMap, SeverityError, "generated mind map is empty")
		}
	}

	seen := make(map[string]string, doc.Anonymization.Len())
	for _, p := range doc.Anonymization.Pairs() {
		if p.Original == "" || p.Placeholder == "" {
			add(FieldAnonymization, SeverityError, "empty token in pair %q -> %q", p.Original, p.Placeholder)
			continue
		}
		if prev, ok := seen[p.Placeholder]; ok {
			add(FieldAnonymization, SeverityError, "placeholder %q used for both %q and %q", p.Placeholder, prev, p.Original)
			continue
		}
		seen[p.Placeholder] = p.Original
	}
	return issues
}

// ValidateText parses text and validates the result. A parse failure is
// returned as the error; issues are only meaningful when it is nil.
func ValidateText(text string) (ResultDocument, []ValidationIssue, error) {
	doc, err := Parse(text)
	if err != nil {
		return doc, nil, err
	}
	return doc, Validate(doc), nil
}

// HasErrors reports whether any issue is an error rather than a warning.
func HasErrors(issues []ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func filepathBase(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), `/\`)
	if idx := strings.LastIndexAny(p, `/\`); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
