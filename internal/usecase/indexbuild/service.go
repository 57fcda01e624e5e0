// Package indexbuild turns knowledge records into a searchable index bundle.
package indexbuild

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
	"github.com/kailas-cloud/vexplain/internal/index"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding call.
	DefaultBatchSize = 64
	// DefaultConcurrency bounds in-flight embedding calls.
	DefaultConcurrency = 4
)

// Builder embeds records and assembles index bundles. Safe for concurrent use.
type Builder struct {
	embed       Embedder
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithBatchSize sets how many texts go into one embedding call.
func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithConcurrency bounds parallel embedding calls.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// New creates an index builder.
func New(embed Embedder, logger *zap.Logger, opts ...Option) *Builder {
	b := &Builder{
		embed:       embed,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every record and returns a fresh bundle. Index position i
// holds records[i] after records with empty canonical text are dropped.
func (b *Builder) Build(ctx context.Context, records []record.Record) (*index.Bundle, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("build index: %w", domain.ErrEmptyInput)
	}
	if err := checkUnique(records); err != nil {
		return nil, err
	}

	start := time.Now()
	kept, texts := b.prepare(records)
	if len(kept) == 0 {
		return nil, fmt.Errorf("build index: no record has indexable text: %w", domain.ErrEmptyInput)
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	dim, err := checkDimensions(vectors, 0, 0)
	if err != nil {
		return nil, err
	}

	flat, err := index.NewFlat(dim, vectors)
	if err != nil {
		return nil, fmt.Errorf("build flat index: %w", err)
	}
	bundle, err := index.NewBundle(flat, kept, index.NewDescriptor(b.embed.ModelID(), dim, len(kept)))
	if err != nil {
		return nil, err
	}

	b.logger.Info("index built",
		zap.Int("records", len(kept)),
		zap.Int("dropped", len(records)-len(kept)),
		zap.Int("dimension", dim),
		zap.String("model", b.embed.ModelID()),
		zap.Duration("duration", time.Since(start)),
	)
	return bundle, nil
}

// Append returns a new bundle holding base plus the records whose ids are not
// yet indexed. Only the new records are embedded. base is left unchanged.
// The second return value is the number of records added.
func (b *Builder) Append(
	ctx context.Context, base *index.Bundle, records []record.Record,
) (*index.Bundle, int, error) {
	desc := base.Descriptor()
	if desc.EmbeddingModelID != b.embed.ModelID() {
		return nil, 0, &domain.ModelMismatchError{IndexModel: desc.EmbeddingModelID, QueryModel: b.embed.ModelID()}
	}

	var fresh []record.Record
	for i := range records {
		if !base.Contains(records[i].ID) {
			fresh = append(fresh, records[i])
		}
	}
	if err := checkUnique(fresh); err != nil {
		return nil, 0, err
	}
	kept, texts := b.prepare(fresh)
	if len(kept) == 0 {
		return base, 0, nil
	}

	vectors, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, 0, err
	}
	if _, err := checkDimensions(vectors, desc.Dimension, base.Len()); err != nil {
		return nil, 0, err
	}

	flat, err := base.Index().Append(vectors)
	if err != nil {
		return nil, 0, fmt.Errorf("append to index: %w", err)
	}
	merged := append(base.Records(), kept...)
	next, err := index.NewBundle(flat, merged, index.NewDescriptor(desc.EmbeddingModelID, desc.Dimension, len(merged)))
	if err != nil {
		return nil, 0, err
	}

	b.logger.Info("index appended",
		zap.Int("added", len(kept)),
		zap.Int("skipped", len(records)-len(kept)),
		zap.Int("total", next.Len()),
	)
	return next, len(kept), nil
}

func (b *Builder) prepare(records []record.Record) ([]record.Record, []string) {
	kept := make([]record.Record, 0, len(records))
	texts := make([]string, 0, len(records))
	for i := range records {
		text := records[i].CanonicalText()
		if text == "" {
			b.logger.Warn("record has no indexable fields, skipping", zap.String("variation_id", records[i].ID))
			continue
		}
		kept = append(kept, records[i])
		texts = append(texts, text)
	}
	return kept, texts
}

// embedAll embeds texts in batches with bounded parallelism.
// Output order matches input order regardless of completion order.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		g.Go(func() error {
			res, err := domain.EmbedAll(gctx, b.embed, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed records [%d:%d]: %w", start, end, err)
			}
			domain.UsageFromContext(gctx).AddTokens(res.TotalTokens)
			copy(vectors[start:end], res.Embeddings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// checkDimensions verifies all vectors share one dimension. want=0 takes the
// first vector's dimension. offset shifts reported positions.
func checkDimensions(vectors [][]float32, want, offset int) (int, error) {
	for i, v := range vectors {
		if want == 0 {
			want = len(v)
		}
		if len(v) != want || len(v) == 0 {
			return 0, &domain.DimensionMismatchError{Expected: want, Got: len(v), Position: offset + i}
		}
	}
	return want, nil
}

func checkUnique(records []record.Record) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		id := records[i].ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
