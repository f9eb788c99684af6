package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrInvalidFilename = errors.New("invalid report filename")
	ErrReportExists    = errors.New("report file already exists")
	ErrReportNotFound  = errors.New("report file not found")
)

// FileActions handles file system operations inside the reports directory.
type FileActions struct {
	ReportsDir string // The absolute path to the reports directory
}

func NewFileActions(reportsPath string) (*FileActions, error) {
	if reportsPath == "" {
		return nil, fmt.Errorf("REPORTS_PATH is not set")
	}
	absPath, err := filepath.Abs(reportsPath)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for REPORTS_PATH: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &FileActions{ReportsDir: absPath}, nil
}

// sanitizeFilename ensures the filename is safe and within the reports directory.
func (fa *FileActions) sanitizeFilename(filename string) (string, error) {
	if !strings.HasSuffix(filename, ".md") {
		return "", fmt.Errorf("%w: %q must end with .md", ErrInvalidFilename, filename)
	}
	base := filepath.Base(filename)
	if base != filename || base == ".md" {
		return "", fmt.Errorf("%w: %q must be a plain file name", ErrInvalidFilename, filename)
	}
	cleanPath := filepath.Join(fa.ReportsDir, base)
	if !strings.HasPrefix(cleanPath, fa.ReportsDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the reports directory", ErrInvalidFilename, filename)
	}
	return cleanPath, nil
}

// CreateMarkdownFile writes a new report file and returns its path.
func (fa *FileActions) CreateMarkdownFile(filename, content string) (string, error) {
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrReportExists, filename)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("create %s: %w", filename, err)
	}
	return path, nil
}

// AppendToBundle adds markdown to an existing bundle file, joined with
// separator, creating the file when it does not exist yet.
func (fa *FileActions) AppendToBundle(filename, content, separator string) (string, error) {
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", filename, err)
	}
	if err == nil && info.Size() > 0 {
		content = separator + "\n" + content
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %s for appending: %w", filename, err)
	}
	defer f.Close()

	if _, err = f.WriteString(content); err != nil {
		return "", fmt.Errorf("append to %s: %w", filename, err)
	}
	return path, nil
}

func (fa *FileActions) ReadMarkdownFile(filename string) (string, error) {
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrReportNotFound, filename)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filename, err)
	}
	return string(content), nil
}

// DeleteMarkdownFile removes a report file and returns the path it had.
func (fa *FileActions) DeleteMarkdownFile(filename string) (string, error) {
	path, err := fa.sanitizeFilename(filename)
	if err != nil {
		return "", err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrReportNotFound, filename)
	}
	if err != nil {
		return "", fmt.Errorf("delete %s: %w", filename, err)
	}
	return path, nil
}

// ListMarkdownFiles returns the report file names in the directory, sorted.
func (fa *FileActions) ListMarkdownFiles() ([]string, error) {
	entries, err := os.ReadDir(fa.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("list reports directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
