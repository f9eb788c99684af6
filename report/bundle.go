package report

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSeparator joins Result Documents into one bundle.
const DefaultSeparator = "<|RELATED_DOC_SEP-magic-9c1f2e7a|>"

var separatorPattern = regexp.MustCompile(`<\|RELATED_DOC_SEP-magic-[^|\s]*\|>`)

// Join concatenates parts with sep. Join(Split(s, sep), sep) == s for every s.
func Join(parts []string, sep string) string {
	return strings.Join(parts, sep)
}

// Split cuts stream on every exact occurrence of sep, keeping surrounding
// whitespace so the split is lossless. An empty sep yields the whole stream.
func Split(stream, sep string) []string {
	if sep == "" {
		return []string{stream}
	}
	return strings.Split(stream, sep)
}

// DetectSeparator finds the first RELATED_DOC_SEP token in stream.
func DetectSeparator(stream string) (string, bool) {
	sep := separatorPattern.FindString(stream)
	return sep, sep != ""
}

// SeparatorFor picks the separator for reading stream: explicit, then the
// token found in stream, then fallback, then DefaultSeparator.
func SeparatorFor(stream, explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if detected, ok := DetectSeparator(stream); ok {
		return detected
	}
	if fallback != "" {
		return fallback
	}
	return DefaultSeparator
}

// ResolveSeparator returns sep, or the token found in stream, or DefaultSeparator.
func ResolveSeparator(stream, sep string) string {
	return SeparatorFor(stream, sep, DefaultSeparator)
}

// BundleEntry is one non-blank part of a bundle and its parse outcome.
type BundleEntry struct {
	Index    int
	Raw      string
	Document ResultDocument
	Err      error
}

// BundleError reports a part of a bundle that failed to parse.
type BundleError struct {
	Index int
	Err   error
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}

// ParseBundle splits stream and parses every non-blank part. Index counts
// parts as Split returns them, so blank parts leave gaps.
func ParseBundle(stream, sep string) []BundleEntry {
	sep = ResolveSeparator(stream, sep)
	var entries []BundleEntry
	for i, part := range Split(stream, sep) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		doc, err := Parse(part)
		entry := BundleEntry{Index: i, Raw: part, Document: doc}
		if err != nil {
			entry.Err = &BundleError{Index: i, Err: err}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Documents returns the successfully parsed documents and the first error.
func Documents(entries []BundleEntry) ([]ResultDocument, error) {
	docs := make([]ResultDocument, 0, len(entries))
	var firstErr error
	for _, e := range entries {
		if e.Err != nil {
			if firstErr == nil {
				firstErr = e.Err
			}
			continue
		}
		docs = append(docs, e.Document)
	}
	return docs, firstErr
}

// RenderBundle renders docs and joins them with sep on lines of its own.
func RenderBundle(docs []ResultDocument, sep string, opts RenderOptions) (string, error) {
	if sep == "" {
		sep = DefaultSeparator
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		rendered, err := Render(doc, opts)
		if err != nil {
			return "", fmt.Errorf("render document %d: %w", i, err)
		}
		parts[i] = rendered
	}
	return Join(parts, sep+"\n"), nil
}
