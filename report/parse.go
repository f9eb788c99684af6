package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	headingPattern = regexp.MustCompile(`^#\s+(.+?)\s*[-－–—]\s*` + HeadingSuffix + `\s*$`)
	sectionPattern = regexp.MustCompile(`^##\s+(.+?)\s*#*$`)
	// "- 处理时间: x", "**处理时间**: x", "**处理时间：** x"
	fieldPattern = regexp.MustCompile(`^(?:[-*+]\s+)?\*{0,2}([^:：*]+?)\*{0,2}\s*[:：]\s*\*{0,2}\s*(.*)$`)
)

var knownSections = map[string]struct{}{
	SectionSummary: {},
	SectionMindMap: {},
	SectionInfo:    {},
}

var horizontalRules = map[string]struct{}{
	"---": {},
	"***": {},
	"___": {},
}

// Accepted 处理时间 layouts; zone-less values are read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type numberedLine struct {
	no   int
	text string
}

type section struct {
	name  string
	start int
	lines []numberedLine
}

// Parse reads a single Result Document. It accepts ASCII or full-width colons,
// bulleted or bold field names, CRLF line endings and sections in any order.
// Missing optional sections leave zero values; Validate reports them.
func Parse(text string) (ResultDocument, error) {
	doc := ResultDocument{MindMap: MindMap{Status: MindMapMissing}}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return doc, ErrEmptyDocument
	}
	lines := strings.Split(text, "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	heading := headingPattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
	if heading == nil {
		return doc, &ParseError{Line: i + 1, Err: ErrMissingHeading}
	}
	doc.Name = strings.TrimSpace(heading[1])

	var (
		preamble []numberedLine
		sections []*section
		current  *section
	)
	for i++; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if m := sectionPattern.FindStringSubmatch(trimmed); m != nil {
			if _, ok := knownSections[m[1]]; ok {
				current = &section{name: m[1], start: i + 1}
				sections = append(sections, current)
				continue
			}
		}
		nl := numberedLine{no: i + 1, text: lines[i]}
		if current == nil {
			preamble = append(preamble, nl)
		} else {
			current.lines = append(current.lines, nl)
		}
	}

	if len(sections) == 0 {
		doc.Attribution, preamble = splitAttribution(preamble)
	} else {
		last := sections[len(sections)-1]
		doc.Attribution, last.lines = splitAttribution(last.lines)
	}

	if err := parseFields(&doc, preamble); err != nil {
		return doc, err
	}

	for _, s := range sections {
		switch s.name {
		case SectionSummary:
			doc.Summary = unescapeBlock(joinLines(s.lines), false)
		case SectionMindMap:
			mindMap, err := parseMindMapSection(joinLines(s.lines))
			if err != nil {
				return doc, &ParseError{Line: s.start, Err: err}
			}
			doc.MindMap = mindMap
		case SectionInfo:
			if err := parseFields(&doc, s.lines); err != nil {
				return doc, err
			}
		}
	}
	return doc, nil
}

// ParseTimestamp reads an ISO-8601 处理时间 value.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

func parseFields(doc *ResultDocument, lines []numberedLine) error {
	for idx := 0; idx < len(lines); idx++ {
		line := lines[idx]
		trimmed := strings.TrimSpace(line.text)
		if trimmed == "" {
			continue
		}
		m := fieldPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		key, value := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])

		switch key {
		case FieldProcessedAt:
			ts, err := ParseTimestamp(strings.Trim(value, "`"))
			if err != nil {
				return &ParseError{Line: line.no, Err: err}
			}
			doc.ProcessedAt = ts
		case FieldSourcePath:
			doc.SourcePath = strings.Trim(value, "`")
		case FieldAnonymization:
			raw, consumed := collectMappingValue(value, lines[idx+1:])
			idx += consumed
			mapping, err := ParseAnonymizationMap(raw)
			if err != nil {
				return &ParseError{Line: line.no, Err: err}
			}
			doc.Anonymization = mapping
		default:
			doc.Extra = append(doc.Extra, Field{Key: key, Value: value})
		}
	}
	return nil
}

// collectMappingValue gathers a 匿名化映射 value that continues past its field
// line, either as an unbalanced "{" object or as a fenced code block. It
// returns the value and how many following lines it consumed.
func collectMappingValue(value string, following []numberedLine) (string, int) {
	if value == "" {
		start := 0
		for start < len(following) && strings.TrimSpace(following[start].text) == "" {
			start++
		}
		if start == len(following) || !strings.HasPrefix(strings.TrimSpace(following[start].text), "```") {
			return value, 0
		}
		var body []string
		for j := start + 1; j < len(following); j++ {
			if strings.HasPrefix(strings.TrimSpace(following[j].text), "```") {
				return strings.Join(body, "\n"), j + 1
			}
			body = append(body, following[j].text)
		}
		return strings.Join(body, "\n"), len(following)
	}

	if !strings.HasPrefix(value, "{") || bracesBalanced(value) {
		return value, 0
	}
	parts := []string{value}
	for j := range following {
		parts = append(parts, following[j].text)
		joined := strings.Join(parts, "\n")
		if bracesBalanced(joined) {
			return joined, j + 1
		}
	}
	return strings.Join(parts, "\n"), len(following)
}

// bracesBalanced reports whether every "{" outside a quoted string is closed.
func bracesBalanced(s string) bool {
	var (
		depth int
		quote rune
		skip  bool
	)
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		switch {
		case quote != 0 && r == '\\':
			skip = true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
		case r == '"' || r == '\'':
			quote = r
		case r == '{':
			depth++
		case r == '}':
			depth--
		}
	}
	return depth <= 0
}

// splitAttribution detaches a trailing "---" rule and the line after it.
func splitAttribution(lines []numberedLine) (string, []numberedLine) {
	last := lastNonBlank(lines, len(lines))
	if last < 0 {
		return "", lines
	}
	rule := lastNonBlank(lines, last)
	if rule < 0 {
		return "", lines
	}
	if _, ok := horizontalRules[strings.TrimSpace(lines[rule].text)]; !ok {
		return "", lines
	}
	attribution := strings.Trim(strings.TrimSpace(lines[last].text), "*_ ")
	return attribution, lines[:rule]
}

func lastNonBlank(lines []numberedLine, before int) int {
	for i := before - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i].text) != "" {
			return i
		}
	}
	return -1
}

func joinLines(lines []numberedLine) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.text
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}
