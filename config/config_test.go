package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/resultdocs/report"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		ConfigFileEnv, "REPORTS_PATH", "PORT", "INDEX_BACKEND", "CHROMA_URL", "CHROMA_COLLECTION",
		"EMBEDDER", "OLLAMA_HOST", "OLLAMA_EMBED_MODEL", "GEMINI_API_KEY", "GEMINI_EMBED_MODEL",
		"REPORT_SEPARATOR", "REPORT_ATTRIBUTION", "CHUNK_SIZE", "CHUNK_OVERLAP", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, IndexBackendChroma, cfg.IndexBackend)
	assert.Equal(t, EmbedderOllama, cfg.Embedder)
	assert.Equal(t, report.DefaultSeparator, cfg.Separator)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "resultdocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
reports_path: /srv/reports
port: "9090"
index_backend: memory
separator: "<|RELATED_DOC_SEP-magic-file|>"
chunk_size: 400
chunk_overlap: 40
`), 0o644))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("PORT", "7070")
	t.Setenv("CHUNK_OVERLAP", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/reports", cfg.ReportsPath)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, IndexBackendMemory, cfg.IndexBackend)
	assert.Equal(t, "<|RELATED_DOC_SEP-magic-file|>", cfg.Separator)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 10, cfg.ChunkOverlap)
	assert.Equal(t, "nomic-embed-text:v1.5", cfg.OllamaEmbedModel)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("bad integer", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHUNK_SIZE", "big")
		_, err := Load()
		assert.ErrorContains(t, err, "parse CHUNK_SIZE")
	})

	t.Run("gemini without key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMBEDDER", EmbedderGemini)
		_, err := Load()
		assert.ErrorContains(t, err, "GEMINI_API_KEY")
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.IndexBackend = "sqlite"
	cfg.ChunkOverlap = cfg.ChunkSize
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index backend: sqlite")
	assert.Contains(t, err.Error(), "chunk overlap")
}
