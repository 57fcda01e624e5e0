package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/batch"
	"github.com/kailas-cloud/vexplain/internal/domain/explanation"
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/index"
	logpkg "github.com/kailas-cloud/vexplain/internal/logger"
	"github.com/kailas-cloud/vexplain/internal/metrics"
	"github.com/kailas-cloud/vexplain/internal/usecase/confidence"
	"github.com/kailas-cloud/vexplain/internal/usecase/explain"
	"github.com/kailas-cloud/vexplain/internal/usecase/retrieval"
)

// Options controls retrieval depth, evidence filtering and parallelism.
type Options struct {
	TopK        int
	Filter      confidence.FilterOptions
	Concurrency int
}

// Validate checks the options against their allowed ranges.
func (o Options) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top_k=%d: %w", o.TopK, domain.ErrInvalidK)
	}
	if o.Filter.MinSimilarity < -1 || o.Filter.MinSimilarity > 1 {
		return domain.NewConfigurationError("index.min_similarity",
			fmt.Sprintf("must be within [-1, 1], got %g", o.Filter.MinSimilarity))
	}
	return nil
}

// Report is the outcome of one explain run. Explanations[i] and Items[i]
// belong to the i-th input variant.
type Report struct {
	Explanations []explanation.Explanation
	Items        []batch.Result
	Summary      retrieval.Summary
}

// Engine explains variants against one loaded index. Safe for concurrent use.
type Engine struct {
	bundle    *index.Bundle
	retriever *retrieval.Service
	explainer Explainer
	opts      Options
	logger    *zap.Logger
}

// NewEngine binds a loaded bundle, a query embedder and an explainer.
func NewEngine(
	bundle *index.Bundle, embed Embedder, explainer Explainer, opts Options, logger *zap.Logger,
) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	retriever, err := retrieval.New(bundle, embed, logger)
	if err != nil {
		return nil, err
	}
	metrics.IndexVectors.Set(float64(bundle.Len()))
	return &Engine{bundle: bundle, retriever: retriever, explainer: explainer, opts: opts, logger: logger}, nil
}

// Descriptor returns the descriptor of the served index.
func (e *Engine) Descriptor() index.Descriptor { return e.bundle.Descriptor() }

// Explain runs retrieval, filtering and explanation for each variant.
// Per-variant failures yield degraded items and never abort the run.
func (e *Engine) Explain(ctx context.Context, vs []variant.Variant) (Report, error) {
	rep := Report{
		Explanations: make([]explanation.Explanation, len(vs)),
		Items:        make([]batch.Result, len(vs)),
	}
	raw := make([][]domret.Result, len(vs))
	keyed := make([]variant.Variant, len(vs))
	for i, v := range vs {
		if v.ID() == "" {
			v = v.WithID(v.Key(i))
		}
		keyed[i] = v
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i := range keyed {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw[i], rep.Explanations[i], rep.Items[i] = e.explainOne(gctx, keyed[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("explain variants: %w", err)
	}

	// One summary entry per input row, duplicate ids included.
	rep.Summary = retrieval.SummarizeQueries(raw)

	logpkg.FromContext(ctx, e.logger).Info("variants explained",
		zap.Int("variants", len(vs)),
		zap.Int("degraded", batch.Count(rep.Items, batch.StatusDegraded)),
	)
	return rep, nil
}

func (e *Engine) explainOne(
	ctx context.Context, v variant.Variant,
) (raw []domret.Result, exp explanation.Explanation, item batch.Result) {
	logger := logpkg.FromContext(ctx, e.logger).With(zap.String("variant_id", v.ID()))
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("explain panic: %v", r)
			logger.Error("explanation failed", zap.Error(err))
			exp, item = explain.Degraded(v), batch.NewDegraded(v.ID(), err)
		}
	}()

	item = batch.NewOK(v.ID())
	raw, err := e.retriever.SearchSimilar(ctx, v, e.opts.TopK)
	if err != nil {
		metrics.RetrievalFailuresTotal.Inc()
		logger.Error("retrieval failed", zap.Error(err))
		raw = []domret.Result{}
		item = batch.NewDegraded(v.ID(), err)
	}

	evidence := confidence.Filter(raw, e.opts.Filter)
	exp = e.explainer.Explain(ctx, v, evidence)
	return raw, exp, item
}
