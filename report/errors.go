package report

import (
	"errors"
	"fmt"
)

// Parse errors. Callers match them with errors.Is; the parser wraps them in
// *ParseError to carry the offending line.
var (
	// ErrEmptyDocument indicates the input holds no text at all
	ErrEmptyDocument = errors.New("empty document")

	// ErrMissingHeading indicates the "# <name> - 处理结果" heading is absent or malformed
	ErrMissingHeading = errors.New("missing result heading")

	// ErrInvalidTimestamp indicates the 处理时间 field is not ISO-8601
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidAnonymization indicates the 匿名化映射 value is not a string mapping
	ErrInvalidAnonymization = errors.New("invalid anonymization map")

	// ErrNotFrameworkError indicates the text carries no "Error Domain=" report
	ErrNotFrameworkError = errors.New("not a framework error")

	// ErrInvalidMindMapFailure indicates a 思维导图 failure line without a status code
	ErrInvalidMindMapFailure = errors.New("invalid mind map failure")
)

// ParseError ties a parse failure to a 1-based line of the document.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
