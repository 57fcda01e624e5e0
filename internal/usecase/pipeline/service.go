// Package pipeline is the query API: build an index from a knowledge source
// and explain variants against a persisted index.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/index"
	"github.com/kailas-cloud/vexplain/internal/metrics"
)

// Service wires the knowledge source, index builder, query embedder and explainer.
type Service struct {
	knowledge KnowledgeLoader
	builder   IndexBuilder
	embed     Embedder
	explainer Explainer
	logger    *zap.Logger
}

// New creates a pipeline service.
func New(
	knowledge KnowledgeLoader, builder IndexBuilder, embed Embedder, explainer Explainer, logger *zap.Logger,
) *Service {
	return &Service{knowledge: knowledge, builder: builder, embed: embed, explainer: explainer, logger: logger}
}

// BuildIndex fully rebuilds the index in dir from source and returns dir.
func (s *Service) BuildIndex(ctx context.Context, source, dir string) (string, error) {
	records, err := s.knowledge.Load(source)
	if err != nil {
		return "", err
	}
	bundle, err := s.builder.Build(ctx, records)
	if err != nil {
		return "", fmt.Errorf("build index: %w", err)
	}
	if err := bundle.Save(dir); err != nil {
		return "", fmt.Errorf("save index: %w", err)
	}
	metrics.IndexVectors.Set(float64(bundle.Len()))
	s.logger.Info("index saved", zap.String("dir", dir), zap.String("build_id", bundle.Descriptor().BuildID))
	return dir, nil
}

// AppendIndex embeds only the source records missing from the index in dir
// and saves the merged index back. Returns the number of records added.
func (s *Service) AppendIndex(ctx context.Context, source, dir string) (int, error) {
	base, err := index.Load(dir)
	if err != nil {
		return 0, err
	}
	records, err := s.knowledge.Load(source)
	if err != nil {
		return 0, err
	}
	next, added, err := s.builder.Append(ctx, base, records)
	if err != nil {
		return 0, fmt.Errorf("append index: %w", err)
	}
	if added == 0 {
		s.logger.Info("index already up to date", zap.String("dir", dir))
		return 0, nil
	}
	if err := next.Save(dir); err != nil {
		return 0, fmt.Errorf("save index: %w", err)
	}
	metrics.IndexVectors.Set(float64(next.Len()))
	return added, nil
}

// EnsureIndex builds the index when it is missing or rebuild is set.
func (s *Service) EnsureIndex(ctx context.Context, source, dir string, rebuild bool) error {
	if !rebuild && index.Exists(dir) {
		return nil
	}
	_, err := s.BuildIndex(ctx, source, dir)
	return err
}

// ExplainVariants loads the index in dir and explains each variant.
// Index and configuration errors abort; per-variant failures do not.
func (s *Service) ExplainVariants(
	ctx context.Context, vs []variant.Variant, dir string, opts Options,
) (Report, error) {
	engine, err := s.Engine(dir, opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Explain(ctx, vs)
}

// Engine loads the index in dir and returns a reusable explain engine.
func (s *Service) Engine(dir string, opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	bundle, err := index.Load(dir)
	if err != nil {
		return nil, err
	}
	return NewEngine(bundle, s.embed, s.explainer, opts, s.logger)
}
