package report

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MindMapStatus is the outcome of the 思维导图 step.
type MindMapStatus string

const (
	MindMapGenerated MindMapStatus = "generated"
	MindMapFailed    MindMapStatus = "failed"
	MindMapMissing   MindMapStatus = "missing"
)

const (
	mindMapFailurePrefix = "思维导图生成失败"
	mindMapMissingText   = "未生成思维导图"
)

var mindMapFailurePattern = regexp.MustCompile(`(?s)^思维导图生成失败\s*[:：]?\s*(?:HTTP\s*|状态码\s*[:：]?\s*)?(\d{3})\b\s*(?:[-–—:：]\s*)?(.*)$`)

// MindMap is the 思维导图 section of a Result Document.
type MindMap struct {
	Status  MindMapStatus   `json:"status"`
	Content string          `json:"content,omitempty"`
	Failure *MindMapFailure `json:"failure,omitempty"`
}

// MindMapFailure records an upstream API rejection, e.g. HTTP 402 with an
// "Insufficient credits" payload.
type MindMapFailure struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	Message    string `json:"message"`
}

// GeneratedMindMap wraps rendered mind map content.
func GeneratedMindMap(content string) MindMap {
	return MindMap{Status: MindMapGenerated, Content: strings.TrimSpace(content)}
}

// FailedMindMap records a failed generation call and extracts its message.
func FailedMindMap(statusCode int, body string) MindMap {
	return MindMap{Status: MindMapFailed, Failure: NewMindMapFailure(statusCode, body)}
}

func NewMindMapFailure(statusCode int, body string) *MindMapFailure {
	body = strings.TrimSpace(body)
	return &MindMapFailure{
		StatusCode: statusCode,
		Body:       body,
		Message:    extractErrorMessage(body),
	}
}

func (f *MindMapFailure) Line() string {
	if f.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", mindMapFailurePrefix, f.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d - %s", mindMapFailurePrefix, f.StatusCode, f.Body)
}

func (f *MindMapFailure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("mind map generation failed: status %d: %s", f.StatusCode, f.Message)
	}
	return fmt.Sprintf("mind map generation failed: status %d", f.StatusCode)
}

// ParseMindMapFailure reads a "思维导图生成失败: HTTP 402 - {...}" line.
func ParseMindMapFailure(line string) (*MindMapFailure, error) {
	match := mindMapFailurePattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMindMapFailure, line)
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMindMapFailure, err)
	}
	return NewMindMapFailure(code, match[2]), nil
}

// parseMindMapSection classifies the section body.
func parseMindMapSection(body string) (MindMap, error) {
	body = strings.TrimSpace(body)
	switch {
	case body == "" || body == mindMapMissingText:
		return MindMap{Status: MindMapMissing}, nil
	case strings.HasPrefix(body, mindMapFailurePrefix):
		failure, err := ParseMindMapFailure(body)
		if err != nil {
			return MindMap{}, err
		}
		return MindMap{Status: MindMapFailed, Failure: failure}, nil
	default:
		return GeneratedMindMap(unescapeBlock(body, true)), nil
	}
}

func (m MindMap) render() string {
	switch m.Status {
	case MindMapFailed:
		if m.Failure == nil {
			return mindMapFailurePrefix
		}
		return m.Failure.Line()
	case MindMapGenerated:
		if content := strings.TrimSpace(m.Content); content != "" {
			return escapeBlock(content, true)
		}
	}
	return mindMapMissingText
}

// extractErrorMessage pulls a human message out of an API error payload.
// Recognised shapes: {"error":{"message":..}}, {"error":".."}, {"message":..}, {"detail":..}.
// Anything else is returned trimmed.
func extractErrorMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return body
	}
	if nested, ok := payload["error"].(map[string]any); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return msg
		}
	}
	for _, key := range []string{"error", "message", "detail"} {
		if msg, ok := payload[key].(string); ok && msg != "" {
			return msg
		}
	}
	return body
}
