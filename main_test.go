package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/config"
	"github/itish2003/resultdocs/report"
)

const failedReport = `# meeting_0612 - 处理结果

- 处理时间: 2025-06-12T09:30:15+08:00
- 原始文件: /Users/demo/Recordings/meeting_0612.m4a

## 内容摘要

转录失败: Error Domain=com.apple.coreaudio.avfaudio Code=1685348671 "(null)" UserInfo={failed call=ExtAudioFileOpenURL((CFURLRef)fileURL, &_extAudioFile)}

## 思维导图

思维导图生成失败: HTTP 402 - {"error":{"message":"Insufficient credits","code":402}}

## 处理信息

- 匿名化映射: {"张三": "[PERSON_1]"}

---
*本报告由 resultdocs 自动生成*
`

const budgetReport = `# budget_review - 处理结果

- 处理时间: 2025-06-13T10:00:00Z
- 原始文件: /Users/demo/Recordings/budget_review.m4a

## 内容摘要

本次会议讨论了季度预算。

## 思维导图

- 预算

## 处理信息

- 匿名化映射: {}

---
*本报告由 resultdocs 自动生成*
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, key := range []string{config.ConfigFileEnv, "EMBEDDER", "INDEX_BACKEND", "REPORT_SEPARATOR", "CHUNK_SIZE", "CHUNK_OVERLAP"} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSplitThenJoin(t *testing.T) {
	bundle := failedReport + report.DefaultSeparator + "\n" + budgetReport
	in := writeTemp(t, "bundle.md", bundle)
	outDir := t.TempDir()

	out, err := execute(t, "split", in, "--out", outDir)
	require.NoError(t, err)

	first := filepath.Join(outDir, "01-meeting_0612.md")
	second := filepath.Join(outDir, "02-budget_review.md")
	assert.Equal(t, first+"\n"+second+"\n", out)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, failedReport, string(data))

	joined, err := execute(t, "join", first, second)
	require.NoError(t, err)
	assert.Equal(t, bundle, joined)
}

func TestParseCommand(t *testing.T) {
	in := writeTemp(t, "bundle.md", failedReport+report.DefaultSeparator+"\n"+budgetReport)

	out, err := execute(t, "parse", in)
	require.NoError(t, err)

	var docs []report.ResultDocument
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "meeting_0612", docs[0].Name)
	assert.Equal(t, 402, docs[0].MindMap.Failure.StatusCode)
	assert.Equal(t, "budget_review", docs[1].Name)

	_, err = execute(t, "parse", writeTemp(t, "bad.md", "nothing here"))
	assert.ErrorIs(t, err, report.ErrMissingHeading)
}

func TestParseThenRender(t *testing.T) {
	in := writeTemp(t, "one.md", failedReport)
	parsed, err := execute(t, "parse", in)
	require.NoError(t, err)

	rendered, err := execute(t, "render", writeTemp(t, "docs.json", parsed))
	require.NoError(t, err)
	assert.Equal(t, failedReport, rendered)
}

func TestRenderSingleObject(t *testing.T) {
	doc := report.NewResultDocument("/rec/a.m4a", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	doc.Summary = "摘要"
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	out, err := execute(t, "render", writeTemp(t, "doc.json", string(data)), "--separator", "<|RELATED_DOC_SEP-magic-x|>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# a - 处理结果\n"))
	assert.Contains(t, out, "- 处理时间: 2025-01-02T03:04:05Z\n")
	assert.NotContains(t, out, "RELATED_DOC_SEP")
}

func TestValidateCommand(t *testing.T) {
	good := writeTemp(t, "good.md", failedReport)
	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "meeting_0612: ok")

	bad := writeTemp(t, "bad.md", strings.Replace(failedReport, "HTTP 402", "HTTP 999", 1))
	out, err = execute(t, "validate", good, bad)
	assert.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "error: 思维导图")

	noSummary := writeTemp(t, "empty.md", strings.Replace(budgetReport, "本次会议讨论了季度预算。\n\n", "", 1))
	_, err = execute(t, "validate", noSummary)
	require.NoError(t, err)
	_, err = execute(t, "validate", "--strict", noSummary)
	assert.ErrorIs(t, err, errValidationFailed)
}

func TestOpenIndexMemory(t *testing.T) {
	cfg := config.Default()
	cfg.IndexBackend = config.IndexBackendMemory

	index, closeFn, err := openIndex(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, closeFn())
	count, err := index.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	cfg.IndexBackend = "sqlite"
	_, _, err = openIndex(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
