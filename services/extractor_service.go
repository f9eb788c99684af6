package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github/itish2003/resultdocs/report"
)

// ExtractReportsFromFile reads a report file and splits it into Result Documents
// on the separator token found in the file, or fallback when it holds none.
// Parts that fail to parse are returned with their error set.
func ExtractReportsFromFile(path, fallback string) ([]report.BundleEntry, error) {
	if !isSupportedFile(path) {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stream := string(content)
	return report.ParseBundle(stream, report.SeparatorFor(stream, "", fallback)), nil
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".txt":
		return true
	default:
		return false
	}
}
