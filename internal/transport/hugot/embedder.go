// Package hugot runs a sentence-transformer model locally via knights-analytics/hugot.
package hugot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// DefaultModel produces 384-dimensional embeddings.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

type runner interface {
	RunPipeline(inputs []string) (*pipelines.FeatureExtractionOutput, error)
}

// Config locates the model. The model is downloaded into ModelDir when missing.
type Config struct {
	Model    string
	ModelDir string
	Logger   *zap.Logger
}

// Embedder runs a feature-extraction pipeline in-process. Inference is serialized.
type Embedder struct {
	mu      sync.Mutex
	run     runner
	model   string
	destroy func() error
}

// NewEmbedder prepares the model and starts a Go-backend session.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	modelPath, err := prepareModel(model, cfg.ModelDir, cfg.Logger)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "vexplain-embedder",
		Options:   []hugot.FeatureExtractionOption{pipelines.WithNormalization()},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, domain.NewConfigurationError("embedding.model", fmt.Sprintf("load %s: %v", model, err))
	}

	return &Embedder{run: pipeline, model: model, destroy: session.Destroy}, nil
}

// prepareModel returns the local model directory, downloading it when absent.
func prepareModel(model, dir string, logger *zap.Logger) (string, error) {
	if dir == "" {
		dir = "./models"
	}
	if info, err := os.Stat(model); err == nil && info.IsDir() {
		return model, nil
	}

	modelPath := filepath.Join(dir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat model dir: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	logger.Info("Downloading embedding model", zap.String("model", model), zap.String("dir", dir))
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(model, dir, opts)
	if err != nil {
		return "", domain.NewConfigurationError("embedding.model", fmt.Sprintf("download %s: %v", model, err))
	}
	return downloaded, nil
}

// ModelID identifies the vector space.
func (e *Embedder) ModelID() string { return "hugot:" + e.model }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed runs the pipeline once over all texts.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	e.mu.Lock()
	out, err := e.run.RunPipeline(texts)
	e.mu.Unlock()
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("failed to generate embedding: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	if len(out.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"pipeline returned %d embeddings for %d inputs: %w",
			len(out.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}
	return domain.BatchEmbeddingResult{Embeddings: out.Embeddings}, nil
}

// Close releases the hugot session.
func (e *Embedder) Close() error {
	if e.destroy == nil {
		return nil
	}
	return e.destroy()
}
