package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitJoin_Lossless(t *testing.T) {
	sep := DefaultSeparator
	for _, stream := range []string{
		"",
		sep,
		"a" + sep,
		sep + "a",
		"a" + sep + sep + "b",
		"\n# a - 处理结果\n" + sep + "\n# b - 处理结果\n",
		"no separator at all",
	} {
		assert.Equal(t, stream, Join(Split(stream, sep), sep), "stream %q", stream)
	}

	docs := []string{"# a - 处理结果\n", "\n# b - 处理结果\n", ""}
	assert.Equal(t, docs, Split(Join(docs, sep), sep))
}

func TestSplit_EmptySeparator(t *testing.T) {
	assert.Equal(t, []string{"whole"}, Split("whole", ""))
}

func TestDetectSeparator(t *testing.T) {
	sep, ok := DetectSeparator("# a\n<|RELATED_DOC_SEP-magic-abc123|>\n# b")
	require.True(t, ok)
	assert.Equal(t, "<|RELATED_DOC_SEP-magic-abc123|>", sep)

	_, ok = DetectSeparator("# a\n---\n# b")
	assert.False(t, ok)

	assert.Equal(t, "<|custom|>", ResolveSeparator("anything", "<|custom|>"))
	assert.Equal(t, DefaultSeparator, ResolveSeparator("plain", ""))
}

func TestSeparatorFor(t *testing.T) {
	custom := "<|RELATED_DOC_SEP-magic-abc123|>"
	stream := "# a - 处理结果\n" + custom + "\n# b - 处理结果\n"

	assert.Equal(t, "<|explicit|>", SeparatorFor(stream, "<|explicit|>", DefaultSeparator))
	assert.Equal(t, custom, SeparatorFor(stream, "", DefaultSeparator))
	assert.Equal(t, "<|configured|>", SeparatorFor("# a - 处理结果\n", "", "<|configured|>"))
	assert.Equal(t, DefaultSeparator, SeparatorFor("# a - 处理结果\n", "", ""))
}

func TestRenderBundle_ParseBundle(t *testing.T) {
	at := time.Date(2025, 6, 12, 1, 30, 0, 0, time.UTC)
	first := NewResultDocument("/rec/a.m4a", at)
	first.Summary = "第一份"
	second := NewResultDocument("/rec/b.m4a", at.Add(time.Minute))
	second.MindMap = FailedMindMap(402, `{"error":{"message":"Insufficient credits"}}`)

	stream, err := RenderBundle([]ResultDocument{first, second}, "", RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stream, DefaultSeparator))

	entries := ParseBundle(stream, "")
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "a", entries[0].Document.Name)
	assert.Equal(t, "b", entries[1].Document.Name)
	assert.Equal(t, 402, entries[1].Document.MindMap.Failure.StatusCode)

	docs, err := Documents(entries)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestParseBundle_ReportsBrokenParts(t *testing.T) {
	sep := "<|RELATED_DOC_SEP-magic-x|>"
	stream := failedReport + sep + "\n   \n" + sep + "not a report\n" + sep + failedReport

	entries := ParseBundle(stream, "")
	require.Len(t, entries, 3)
	assert.NoError(t, entries[0].Err)
	assert.Equal(t, 3, entries[2].Index)

	require.Error(t, entries[1].Err)
	assert.ErrorIs(t, entries[1].Err, ErrMissingHeading)
	var bundleErr *BundleError
	require.ErrorAs(t, entries[1].Err, &bundleErr)
	assert.Equal(t, 2, bundleErr.Index)

	docs, err := Documents(entries)
	assert.Len(t, docs, 2)
	assert.ErrorIs(t, err, ErrMissingHeading)
}
