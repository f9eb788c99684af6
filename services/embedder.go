package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github/itish2003/resultdocs/config"
)

// Embedder turns text into a vector for the report index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// OllamaEmbedder calls the /api/embeddings endpoint of an Ollama server.
type OllamaEmbedder struct {
	httpClient *http.Client
	host       string
	model      string
}

func NewOllamaEmbedder(client *http.Client, host, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		httpClient: client,
		host:       strings.TrimRight(host, "/"),
		model:      model,
	}
}

// Embed generates embeddings using Ollama.
func (o *OllamaEmbedder) Embed(ctx context.Context, textToEmbed string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{
		Model:  o.model,
		Prompt: textToEmbed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", o.model)
	}
	return ollamaResp.Embedding, nil
}

// GeminiEmbedder embeds text with the Gemini embedding models.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{client: client, model: model}
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding for model %s", g.model)
	}
	return resp.Embeddings[0].Values, nil
}

// NewEmbedder builds the embedder selected by cfg.Embedder.
func NewEmbedder(ctx context.Context, cfg config.Config, httpClient *http.Client) (Embedder, error) {
	switch cfg.Embedder {
	case config.EmbedderOllama:
		return NewOllamaEmbedder(httpClient, cfg.OllamaHost, cfg.OllamaEmbedModel), nil
	case config.EmbedderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return NewGeminiEmbedder(client, cfg.GeminiEmbedModel), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder)
	}
}
