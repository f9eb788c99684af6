package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const nullDescription = "(null)"

var frameworkErrorPattern = regexp.MustCompile(`Error Domain=(\S+) Code=(-?\d+) "((?:[^"\\]|\\.)*)"`)

// Field is an ordered key/value pair.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FrameworkError is an audio framework failure echoed into a summary, e.g.
//
//	Error Domain=com.apple.coreaudio.avfaudio Code=1685348671 "(null)" UserInfo={failed call=ExtAudioFileOpenURL(...)}
type FrameworkError struct {
	Domain      string  `json:"domain"`
	Code        int64   `json:"code"`
	Description string  `json:"description,omitempty"`
	UserInfo    []Field `json:"user_info,omitempty"`
}

// ParseFrameworkError reads the first "Error Domain=" report found in s.
func ParseFrameworkError(s string) (*FrameworkError, error) {
	loc := frameworkErrorPattern.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil, ErrNotFrameworkError
	}

	code, err := strconv.ParseInt(s[loc[4]:loc[5]], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: code: %v", ErrNotFrameworkError, err)
	}
	description := strings.ReplaceAll(s[loc[6]:loc[7]], `\"`, `"`)
	if description == nullDescription {
		description = ""
	}

	fe := &FrameworkError{
		Domain:      s[loc[2]:loc[3]],
		Code:        code,
		Description: description,
	}

	rest := s[loc[1]:]
	const userInfoPrefix = " UserInfo="
	if strings.HasPrefix(rest, userInfoPrefix) {
		body, _ := braceBody(rest[len(userInfoPrefix):])
		fe.UserInfo = splitUserInfo(body)
	}
	return fe, nil
}

// FindFrameworkError reports the framework error embedded in text, if any.
func FindFrameworkError(text string) (*FrameworkError, bool) {
	fe, err := ParseFrameworkError(text)
	if err != nil {
		return nil, false
	}
	return fe, true
}

func (e *FrameworkError) Error() string {
	return e.String()
}

func (e *FrameworkError) String() string {
	description := e.Description
	if description == "" {
		description = nullDescription
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error Domain=%s Code=%d %q", e.Domain, e.Code, description)
	if len(e.UserInfo) > 0 {
		sb.WriteString(" UserInfo={")
		for i, f := range e.UserInfo {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Key)
			sb.WriteByte('=')
			sb.WriteString(f.Value)
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

// Info returns the UserInfo value stored under key.
func (e *FrameworkError) Info(key string) (string, bool) {
	for _, f := range e.UserInfo {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Underlying returns the first nested framework error inside UserInfo.
func (e *FrameworkError) Underlying() (*FrameworkError, bool) {
	for _, f := range e.UserInfo {
		if nested, ok := FindFrameworkError(f.Value); ok {
			return nested, true
		}
	}
	return nil, false
}

// FourCC renders codes made of four printable ASCII bytes, the way audio
// frameworks pack OSStatus values (1685348671 is "dta?").
func (e *FrameworkError) FourCC() (string, bool) {
	if e.Code <= 0 || e.Code > 0xFFFFFFFF {
		return "", false
	}
	b := []byte{byte(e.Code >> 24), byte(e.Code >> 16), byte(e.Code >> 8), byte(e.Code)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "", false
		}
	}
	return string(b), true
}

// braceBody returns the text inside the outermost braces at the start of s.
// An unclosed brace yields the remainder and false.
func braceBody(s string) (string, bool) {
	if !strings.HasPrefix(s, "{") {
		return "", false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[1:i], true
			}
		}
	}
	return s[1:], false
}

// splitUserInfo splits "k=v, k2=v2" on commas outside any bracket pair.
func splitUserInfo(body string) []Field {
	var (
		fields []Field
		depth  int
		start  int
	)
	flush := func(end int) {
		part := strings.TrimSpace(body[start:end])
		if part == "" {
			return
		}
		key, value, _ := strings.Cut(part, "=")
		fields = append(fields, Field{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	for i, r := range body {
		switch r {
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(body))
	return fields
}
