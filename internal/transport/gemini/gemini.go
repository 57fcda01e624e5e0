// Package gemini embeds and generates text with Google Gemini via google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

const (
	DefaultEmbeddingModel  = "gemini-embedding-001"
	DefaultGenerativeModel = "gemini-2.5-flash"

	taskType = "SEMANTIC_SIMILARITY"
)

// models is the subset of *genai.Models used here.
type models interface {
	EmbedContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
	GenerateContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Config selects the backend. An empty Project uses the Gemini API with APIKey,
// otherwise Vertex AI in Project/Location.
type Config struct {
	APIKey     string
	Project    string
	Location   string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewClient creates a genai client for the configured backend.
func NewClient(ctx context.Context, cfg *Config) (*genai.Client, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.Project != "" {
		cc = &genai.ClientConfig{Project: cfg.Project, Location: cfg.Location, Backend: genai.BackendVertexAI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, domain.NewConfigurationError("gemini", fmt.Sprintf("create client: %v", err))
	}
	return client, nil
}

// Embedder is a Gemini embedding provider.
type Embedder struct {
	models     models
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder creates an embedder over client.Models.
func NewEmbedder(client *genai.Client, cfg *Config) *Embedder {
	return newEmbedder(client.Models, cfg)
}

func newEmbedder(m models, cfg *Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: m, model: model, dimensions: cfg.Dimensions, logger: cfg.Logger}
}

// ModelID identifies the vector space.
func (e *Embedder) ModelID() string {
	if e.dimensions > 0 {
		return fmt.Sprintf("gemini:%s@%d", e.model, e.dimensions)
	}
	return "gemini:" + e.model
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed embeds all texts in one EmbedContent call.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if e.dimensions > 0 {
		dims := int32(e.dimensions)
		cfg.OutputDimensionality = &dims
	}

	resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("gemini embed: %w: %w", err, domain.ErrEmbeddingProviderError)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"gemini returned %d embeddings for %d inputs: %w", got, len(texts), domain.ErrEmbeddingProviderError)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"gemini returned empty embedding at %d: %w", i, domain.ErrEmbeddingProviderError)
		}
		out[i] = emb.Values
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// Generator is a Gemini text generator.
type Generator struct {
	models models
	model  string
	logger *zap.Logger
}

// NewGenerator creates a generator over client.Models.
func NewGenerator(client *genai.Client, cfg *Config) *Generator {
	return newGenerator(client.Models, cfg)
}

func newGenerator(m models, cfg *Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultGenerativeModel
	}
	return &Generator{models: m, model: model, logger: cfg.Logger}
}

// Name returns the provider-qualified model name.
func (g *Generator) Name() string { return "gemini:" + g.model }

// Generate implements domain.TextGenerator.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	temp := req.Temperature
	thinkingBudget := int32(0)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     &temp,
		StopSequences:   req.StopSequences,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w: %w", err, domain.ErrGenerationFailed)
	}
	if resp == nil {
		return "", fmt.Errorf("gemini generate: nil response: %w", domain.ErrGenerationFailed)
	}

	text := strings.TrimSpace(resp.Text())
	g.logger.Debug("Gemini completion received",
		zap.String("model", g.model),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
