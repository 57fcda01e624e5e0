// Package retrieval finds knowledge records similar to a query variant.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/metrics"
)

// Service runs similarity search against one loaded index. Safe for concurrent use.
type Service struct {
	idx    Index
	embed  Embedder
	logger *zap.Logger
}

// New binds an embedder to an index. The embedder must be the one the index was built with.
func New(idx Index, embed Embedder, logger *zap.Logger) (*Service, error) {
	indexModel := idx.Descriptor().EmbeddingModelID
	if indexModel != embed.ModelID() {
		return nil, &domain.ModelMismatchError{IndexModel: indexModel, QueryModel: embed.ModelID()}
	}
	return &Service{idx: idx, embed: embed, logger: logger}, nil
}

// SearchSimilar returns up to k records most similar to v, most similar first.
// A variant with no searchable fields yields no results.
func (s *Service) SearchSimilar(ctx context.Context, v variant.Variant, k int) ([]domret.Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("search similar k=%d: %w", k, domain.ErrInvalidK)
	}
	text := v.CanonicalText()
	if text == "" {
		return nil, nil
	}

	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	hits, err := s.idx.Search(emb.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domret.Result, len(hits))
	for i, h := range hits {
		results[i] = domret.New(s.idx.Record(h.Position), h.Score, i+1, h.Position)
	}
	return results, nil
}

// BatchSearch runs SearchSimilar for each variant, keyed by variant.Key(i).
// A failing variant gets an empty result list and is logged; it never aborts
// the batch. Only an invalid k is returned as an error.
func (s *Service) BatchSearch(
	ctx context.Context, variants []variant.Variant, k int,
) (map[string][]domret.Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("batch search k=%d: %w", k, domain.ErrInvalidK)
	}

	out := make(map[string][]domret.Result, len(variants))
	for i, v := range variants {
		key := v.Key(i)
		results, err := s.SearchSimilar(ctx, v, k)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			metrics.RetrievalFailuresTotal.Inc()
			s.logger.Error("retrieval failed", zap.String("variant_id", key), zap.Error(err))
			results = []domret.Result{}
		}
		if results == nil {
			results = []domret.Result{}
		}
		out[key] = results
	}
	return out, nil
}

// ModelID returns the embedding model the service queries with.
func (s *Service) ModelID() string { return s.embed.ModelID() }
