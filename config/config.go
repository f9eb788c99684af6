package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github/itish2003/resultdocs/report"
)

const (
	IndexBackendChroma = "chroma"
	IndexBackendMemory = "memory"

	EmbedderOllama = "ollama"
	EmbedderGemini = "gemini"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "RESULTDOCS_CONFIG"

type Config struct {
	ReportsPath string `yaml:"reports_path"`
	Port        string `yaml:"port"`

	IndexBackend     string `yaml:"index_backend"`
	ChromaURL        string `yaml:"chroma_url"`
	ChromaCollection string `yaml:"chroma_collection"`

	Embedder         string `yaml:"embedder"`
	OllamaHost       string `yaml:"ollama_host"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`
	GeminiAPIKey     string `yaml:"gemini_api_key"`
	GeminiEmbedModel string `yaml:"gemini_embed_model"`

	Separator    string `yaml:"separator"`
	Attribution  string `yaml:"attribution"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:             "8080",
		IndexBackend:     IndexBackendChroma,
		ChromaURL:        "http://localhost:8000",
		ChromaCollection: "result-documents",
		Embedder:         EmbedderOllama,
		OllamaHost:       "http://localhost:11434",
		OllamaEmbedModel: "nomic-embed-text:v1.5",
		GeminiEmbedModel: "text-embedding-004",
		Separator:        report.DefaultSeparator,
		Attribution:      report.DefaultAttribution,
		ChunkSize:        1000,
		ChunkOverlap:     100,
		LogLevel:         "info",
	}
}

// Load layers .env, the optional YAML file named by RESULTDOCS_CONFIG and the
// process environment, in that order of increasing precedence.
func Load() (Config, error) {
	// A missing .env is normal; the environment is used as-is then.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"REPORTS_PATH":       &c.ReportsPath,
		"PORT":               &c.Port,
		"INDEX_BACKEND":      &c.IndexBackend,
		"CHROMA_URL":         &c.ChromaURL,
		"CHROMA_COLLECTION":  &c.ChromaCollection,
		"EMBEDDER":           &c.Embedder,
		"OLLAMA_HOST":        &c.OllamaHost,
		"OLLAMA_EMBED_MODEL": &c.OllamaEmbedModel,
		"GEMINI_API_KEY":     &c.GeminiAPIKey,
		"GEMINI_EMBED_MODEL": &c.GeminiEmbedModel,
		"REPORT_SEPARATOR":   &c.Separator,
		"REPORT_ATTRIBUTION": &c.Attribution,
		"LOG_LEVEL":          &c.LogLevel,
	}
	for key, target := range stringVars {
		if value, ok := lookupEnv(key); ok {
			*target = value
		}
	}

	intVars := map[string]*int{
		"CHUNK_SIZE":    &c.ChunkSize,
		"CHUNK_OVERLAP": &c.ChunkOverlap,
	}
	for key, target := range intVars {
		value, ok := lookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*target = n
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	switch c.IndexBackend {
	case IndexBackendChroma, IndexBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown index backend: %s", c.IndexBackend))
	}
	switch c.Embedder {
	case EmbedderOllama:
	case EmbedderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("gemini embedder selected but GEMINI_API_KEY not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedder: %s", c.Embedder))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap))
	}
	if c.Separator == "" {
		errs = append(errs, errors.New("report separator must not be empty"))
	}
	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}
