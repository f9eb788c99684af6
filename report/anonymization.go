package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// emptyMappingMarkers are the values written when no token was anonymized.
var emptyMappingMarkers = map[string]struct{}{
	"":     {},
	"{}":   {},
	"无":    {},
	"None": {},
	"null": {},
}

// Replacement pairs a sensitive token with the placeholder that stood in for it.
type Replacement struct {
	Original    string `json:"original"`
	Placeholder string `json:"placeholder"`
}

// AnonymizationMap is the ordered 匿名化映射 of a Result Document.
// The zero value is an empty map ready to use.
type AnonymizationMap struct {
	pairs []Replacement
}

// NewAnonymizationMap builds a map from pairs; later duplicates of an original win.
func NewAnonymizationMap(pairs ...Replacement) AnonymizationMap {
	var m AnonymizationMap
	for _, p := range pairs {
		m.Set(p.Original, p.Placeholder)
	}
	return m
}

func (m AnonymizationMap) Len() int {
	return len(m.pairs)
}

// Pairs returns a copy of the replacements in insertion order.
func (m AnonymizationMap) Pairs() []Replacement {
	out := make([]Replacement, len(m.pairs))
	copy(out, m.pairs)
	return out
}

func (m AnonymizationMap) Get(original string) (string, bool) {
	for _, p := range m.pairs {
		if p.Original == original {
			return p.Placeholder, true
		}
	}
	return "", false
}

// Set adds a replacement, or updates it in place when the original is already mapped.
func (m *AnonymizationMap) Set(original, placeholder string) {
	for i := range m.pairs {
		if m.pairs[i].Original == original {
			m.pairs[i].Placeholder = placeholder
			return
		}
	}
	m.pairs = append(m.pairs, Replacement{Original: original, Placeholder: placeholder})
}

// Equal reports whether both maps hold the same pairs in the same order.
func (m AnonymizationMap) Equal(other AnonymizationMap) bool {
	if len(m.pairs) != len(other.pairs) {
		return false
	}
	for i := range m.pairs {
		if m.pairs[i] != other.pairs[i] {
			return false
		}
	}
	return true
}

// Apply replaces every original token in text with its placeholder.
// Longer originals are matched first so "张三丰" is not split by "张三".
func (m AnonymizationMap) Apply(text string) string {
	return m.replacer(func(p Replacement) (string, string) { return p.Original, p.Placeholder }).Replace(text)
}

// Restore is the inverse of Apply.
func (m AnonymizationMap) Restore(text string) string {
	return m.replacer(func(p Replacement) (string, string) { return p.Placeholder, p.Original }).Replace(text)
}

func (m AnonymizationMap) replacer(direction func(Replacement) (string, string)) *strings.Replacer {
	type rule struct{ from, to string }
	rules := make([]rule, 0, len(m.pairs))
	for _, p := range m.pairs {
		from, to := direction(p)
		if from == "" {
			continue
		}
		rules = append(rules, rule{from, to})
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return utf8.RuneCountInString(rules[i].from) > utf8.RuneCountInString(rules[j].from)
	})
	args := make([]string, 0, len(rules)*2)
	for _, r := range rules {
		args = append(args, r.from, r.to)
	}
	return strings.NewReplacer(args...)
}

// MarshalText renders the map as a single-line JSON object in insertion order,
// without escaping HTML characters or non-ASCII text.
func (m AnonymizationMap) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m.pairs {
		if i > 0 {
			buf.WriteString(", ")
		}
		key, err := encodeJSONString(p.Original)
		if err != nil {
			return nil, err
		}
		value, err := encodeJSONString(p.Placeholder)
		if err != nil {
			return nil, err
		}
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *AnonymizationMap) UnmarshalText(text []byte) error {
	parsed, err := ParseAnonymizationMap(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m AnonymizationMap) String() string {
	text, err := m.MarshalText()
	if err != nil {
		return fmt.Sprintf("<invalid anonymization map: %v>", err)
	}
	return string(text)
}

// MarshalJSON emits a JSON object whose key order follows insertion order.
func (m AnonymizationMap) MarshalJSON() ([]byte, error) {
	return m.MarshalText()
}

func (m *AnonymizationMap) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*m = AnonymizationMap{}
		return nil
	}
	return m.UnmarshalText(data)
}

// ParseAnonymizationMap reads a 匿名化映射 value. Both JSON objects and Python
// dict literals with single-quoted strings are accepted, as are the empty
// markers "{}" and "无".
func ParseAnonymizationMap(raw string) (AnonymizationMap, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.Trim(trimmed, "`")
	trimmed = strings.TrimSpace(trimmed)
	if _, ok := emptyMappingMarkers[trimmed]; ok {
		return AnonymizationMap{}, nil
	}

	p := &mappingParser{src: trimmed}
	m, err := p.parse()
	if err != nil {
		return AnonymizationMap{}, fmt.Errorf("%w: %v", ErrInvalidAnonymization, err)
	}
	return m, nil
}

type mappingParser struct {
	src string
	pos int
}

func (p *mappingParser) parse() (AnonymizationMap, error) {
	var m AnonymizationMap
	p.skipSpace()
	if !p.consume('{') {
		return m, fmt.Errorf("expected '{' at offset %d", p.pos)
	}
	p.skipSpace()
	if p.consume('}') {
		return m, p.expectEnd()
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return m, err
		}
		p.skipSpace()
		if !p.consume(':') {
			return m, fmt.Errorf("expected ':' at offset %d", p.pos)
		}
		p.skipSpace()
		value, err := p.parseString()
		if err != nil {
			return m, err
		}
		m.Set(key, value)
		p.skipSpace()
		if p.consume(',') {
			p.skipSpace()
			// tolerate a trailing comma
			if p.consume('}') {
				return m, p.expectEnd()
			}
			continue
		}
		if p.consume('}') {
			return m, p.expectEnd()
		}
		return m, fmt.Errorf("expected ',' or '}' at offset %d", p.pos)
	}
}

func (p *mappingParser) expectEnd() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return fmt.Errorf("unexpected trailing text at offset %d", p.pos)
	}
	return nil
}

func (p *mappingParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *mappingParser) consume(b byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == b {
		p.pos++
		return true
	}
	return false
}

func (p *mappingParser) parseString() (string, error) {
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("expected string at end of input")
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("expected quoted string at offset %d", p.pos)
	}
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
		case quote:
			p.pos++
			literal := p.src[start:p.pos]
			if quote == '"' {
				var s string
				if err := json.Unmarshal([]byte(literal), &s); err != nil {
					return "", fmt.Errorf("decode string at offset %d: %w", start, err)
				}
				return s, nil
			}
			return unquoteSingle(literal[1 : len(literal)-1])
		default:
			p.pos++
		}
	}
	return "", fmt.Errorf("unterminated string at offset %d", start)
}

// unquoteSingle decodes the body of a Python single-quoted string literal.
func unquoteSingle(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[body[i]]
			if i+width >= len(body) {
				return "", fmt.Errorf("truncated escape in %q", body)
			}
			code, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid escape in %q: %w", body, err)
			}
			sb.WriteRune(rune(code))
			i += width
		default:
			// \\ \' \" and unknown escapes keep the escaped byte
			sb.WriteByte(body[i])
		}
	}
	return sb.String(), nil
}

func encodeJSONString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
