package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizationMap_TextRoundTrip(t *testing.T) {
	m := NewAnonymizationMap(
		Replacement{Original: "张三", Placeholder: "[PERSON_1]"},
		Replacement{Original: `say "hi" & <b>`, Placeholder: "[CODE_1]"},
		Replacement{Original: "line\nbreak", Placeholder: "[TEXT_1]"},
	)

	text, err := m.MarshalText()
	require.NoError(t, err)
	assert.NotContains(t, string(text), "\n")
	assert.Contains(t, string(text), `"张三": "[PERSON_1]"`)

	parsed, err := ParseAnonymizationMap(string(text))
	require.NoError(t, err)
	assert.True(t, m.Equal(parsed), "got %s", parsed)
}

func TestAnonymizationMap_JSON(t *testing.T) {
	m := NewAnonymizationMap(
		Replacement{Original: "b", Placeholder: "2"},
		Replacement{Original: "a", Placeholder: "1"},
	)
	data, err := json.Marshal(struct {
		Map AnonymizationMap `json:"map"`
	}{m})
	require.NoError(t, err)
	assert.Equal(t, `{"map":{"b":"2","a":"1"}}`, string(data))

	var decoded struct {
		Map AnonymizationMap `json:"map"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []Replacement{{"b", "2"}, {"a", "1"}}, decoded.Map.Pairs())

	require.NoError(t, json.Unmarshal([]byte(`{"map":null}`), &decoded))
	assert.Equal(t, 0, decoded.Map.Len())
}

func TestParseAnonymizationMap_Forms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Replacement
	}{
		{name: "empty object", input: "{}", want: []Replacement{}},
		{name: "none marker", input: "无", want: []Replacement{}},
		{name: "backticked", input: "`{\"a\": \"b\"}`", want: []Replacement{{"a", "b"}}},
		{name: "python dict", input: `{'张三': 'P1', 'x中': 'P2'}`, want: []Replacement{{"张三", "P1"}, {"x中", "P2"}}},
		{name: "json unicode escape", input: `{"\u674e\u56db": "P3"}`, want: []Replacement{{"李四", "P3"}}},
		{name: "trailing comma", input: `{"a": "1",}`, want: []Replacement{{"a", "1"}}},
		{name: "duplicate key keeps position", input: `{"a": "1", "b": "2", "a": "3"}`, want: []Replacement{{"a", "3"}, {"b", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseAnonymizationMap(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Pairs())
		})
	}
}

func TestParseAnonymizationMap_Invalid(t *testing.T) {
	for _, input := range []string{
		`["a", "b"]`,
		`{"a": 1}`,
		`{"a": "b"`,
		`{"a": "b"} extra`,
		`{'a': 'b}`,
	} {
		_, err := ParseAnonymizationMap(input)
		assert.ErrorIs(t, err, ErrInvalidAnonymization, input)
	}
}

func TestAnonymizationMap_ApplyRestore(t *testing.T) {
	m := NewAnonymizationMap(
		Replacement{Original: "张三", Placeholder: "[PERSON_1]"},
		Replacement{Original: "张三丰", Placeholder: "[PERSON_2]"},
		Replacement{Original: "", Placeholder: "[IGNORED]"},
	)

	text := "张三丰和张三讨论了太极。"
	anonymized := m.Apply(text)
	assert.Equal(t, "[PERSON_2]和[PERSON_1]讨论了太极。", anonymized)
	assert.Equal(t, text, m.Restore(anonymized))
}

func TestAnonymizationMap_Set(t *testing.T) {
	var m AnonymizationMap
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("a", "3")

	assert.Equal(t, 2, m.Len())
	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", got)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	pairs := m.Pairs()
	pairs[0].Placeholder = "mutated"
	got, _ = m.Get("a")
	assert.Equal(t, "3", got)
}
