package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderOptions tunes Render. The zero value writes RFC 3339 timestamps, with
// fractional seconds when they are set, and the DefaultAttribution.
type RenderOptions struct {
	Attribution string
	TimeLayout  string
}

func (o RenderOptions) timeLayout() string {
	if o.TimeLayout == "" {
		return time.RFC3339Nano
	}
	return o.TimeLayout
}

// Render writes doc in the Result Document markdown format. Summary and mind
// map lines that would read back as section headings or status lines are
// escaped with a leading backslash, which Parse removes.
func Render(doc ResultDocument, opts RenderOptions) (string, error) {
	mapping, err := doc.Anonymization.MarshalText()
	if err != nil {
		return "", fmt.Errorf("encode anonymization map: %w", err)
	}

	attribution := doc.Attribution
	if attribution == "" {
		attribution = opts.Attribution
	}
	if attribution == "" {
		attribution = DefaultAttribution
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s - %s\n\n", doc.Name, HeadingSuffix)
	fmt.Fprintf(&sb, "- %s: %s\n", FieldProcessedAt, doc.ProcessedAt.Format(opts.timeLayout()))
	fmt.Fprintf(&sb, "- %s: %s\n\n", FieldSourcePath, doc.SourcePath)

	fmt.Fprintf(&sb, "## %s\n\n", SectionSummary)
	if summary := strings.TrimSpace(doc.Summary); summary != "" {
		sb.WriteString(escapeBlock(summary, false))
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "## %s\n\n", SectionMindMap)
	sb.WriteString(doc.MindMap.render())
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "## %s\n\n", SectionInfo)
	fmt.Fprintf(&sb, "- %s: %s\n", FieldAnonymization, mapping)
	for _, f := range doc.Extra {
		fmt.Fprintf(&sb, "- %s: %s\n", f.Key, f.Value)
	}

	fmt.Fprintf(&sb, "\n---\n*%s*\n", attribution)
	return sb.String(), nil
}
