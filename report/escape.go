package report

import "strings"

// escapeBlock prefixes a backslash to every line of text that Parse would
// otherwise take for structure: a known "## " section heading, or with
// statusLines set, a first line reading as a mind map failure or missing
// marker. Lines already starting with backslashes before such text get one
// more, so unescapeBlock always restores the input.
func escapeBlock(text string, statusLines bool) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		indent, rest := splitIndent(line)
		if isStructural(strings.TrimLeft(rest, `\`), statusLines && i == 0) {
			lines[i] = indent + `\` + rest
		}
	}
	return strings.Join(lines, "\n")
}

// unescapeBlock reverses escapeBlock.
func unescapeBlock(text string, statusLines bool) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		indent, rest := splitIndent(line)
		if strings.HasPrefix(rest, `\`) && isStructural(strings.TrimLeft(rest, `\`), statusLines && i == 0) {
			lines[i] = indent + rest[1:]
		}
	}
	return strings.Join(lines, "\n")
}

func splitIndent(line string) (string, string) {
	rest := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(rest)], rest
}

func isStructural(line string, statusLine bool) bool {
	trimmed := strings.TrimSpace(line)
	if m := sectionPattern.FindStringSubmatch(trimmed); m != nil {
		if _, ok := knownSections[m[1]]; ok {
			return true
		}
	}
	return statusLine && (strings.HasPrefix(trimmed, mindMapFailurePrefix) || trimmed == mindMapMissingText)
}
