package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/config"
	dbValkey "github.com/kailas-cloud/vexplain/internal/db/valkey"
	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/metrics"
	"github.com/kailas-cloud/vexplain/internal/repository/embcache"
	"github.com/kailas-cloud/vexplain/internal/repository/knowledge"
	geminiTransport "github.com/kailas-cloud/vexplain/internal/transport/gemini"
	"github.com/kailas-cloud/vexplain/internal/transport/hashing"
	hugotEmb "github.com/kailas-cloud/vexplain/internal/transport/hugot"
	openaiTransport "github.com/kailas-cloud/vexplain/internal/transport/openai"
	"github.com/kailas-cloud/vexplain/internal/usecase/confidence"
	embeddinguc "github.com/kailas-cloud/vexplain/internal/usecase/embedding"
	"github.com/kailas-cloud/vexplain/internal/usecase/explain"
	"github.com/kailas-cloud/vexplain/internal/usecase/indexbuild"
	"github.com/kailas-cloud/vexplain/internal/usecase/pipeline"
)

// components is everything a command needs, assembled from config.
type components struct {
	pipeline  *pipeline.Service
	explainer *explain.Service
	embedder  domain.TextEmbedder
	// provider is the undecorated embedding provider, used for health checks.
	provider domain.TextEmbedder
	// cache is nil when no cache is configured or it was unreachable.
	cache *dbValkey.Store
}

// wire is the composition root.
func (a *app) wire(ctx context.Context) (*components, error) {
	provider, err := a.buildProvider(ctx)
	if err != nil {
		return nil, err
	}

	cache := a.connectCache(ctx)
	embedder := a.decorate(provider, cache)

	generation, err := a.buildGenerator(ctx)
	if err != nil {
		return nil, err
	}

	scorer, err := confidence.NewScorer(a.policy())
	if err != nil {
		return nil, err
	}

	explainer := explain.New(generation, scorer, explain.Config{
		MaxTokens:              a.cfg.Generation.MaxTokens,
		Temperature:            *a.cfg.Generation.Temperature,
		StopSequences:          a.cfg.Generation.StopSequences,
		Timeout:                time.Duration(a.cfg.Generation.TimeoutSec) * time.Second,
		MaxConsecutiveFailures: a.cfg.Generation.MaxConsecutiveFailures,
		Cooldown:               time.Duration(*a.cfg.Generation.CooldownSec) * time.Second,
	}, a.logger)

	builder := indexbuild.New(embedder, a.logger,
		indexbuild.WithBatchSize(a.cfg.Embedding.BatchSize),
		indexbuild.WithConcurrency(a.cfg.Embedding.Concurrency),
	)

	a.logger.Info("Pipeline wired",
		zap.String("embedding_model", embedder.ModelID()),
		zap.String("generator", generation.Name()),
		zap.Bool("cache", cache != nil),
	)

	return &components{
		pipeline:  pipeline.New(knowledge.NewLoader(a.logger), builder, embedder, explainer, a.logger),
		explainer: explainer,
		embedder:  embedder,
		provider:  provider,
		cache:     cache,
	}, nil
}

// buildProvider creates the base embedding provider named in config.
func (a *app) buildProvider(ctx context.Context) (domain.TextEmbedder, error) {
	ec := a.cfg.Embedding
	switch ec.Provider {
	case config.ProviderOpenAI:
		return openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Timeout:    time.Duration(ec.TimeoutSec) * time.Second,
			Logger:     a.logger,
		}), nil
	case config.ProviderGemini:
		gc := &geminiTransport.Config{
			APIKey:     ec.APIKey,
			Project:    ec.Project,
			Location:   ec.Location,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Logger:     a.logger,
		}
		client, err := geminiTransport.NewClient(ctx, gc)
		if err != nil {
			return nil, err
		}
		return geminiTransport.NewEmbedder(client, gc), nil
	case config.ProviderHugot:
		e, err := hugotEmb.NewEmbedder(&hugotEmb.Config{
			Model:    ec.Model,
			ModelDir: ec.ModelDir,
			Logger:   a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(func() {
			if err := e.Close(); err != nil {
				a.logger.Warn("Failed to close embedding session", zap.Error(err))
			}
		})
		return e, nil
	case config.ProviderHashing:
		return hashing.NewEmbedder(ec.Dimensions), nil
	default:
		return nil, domain.NewConfigurationError("embedding.provider", fmt.Sprintf("unknown provider %q", ec.Provider))
	}
}

// connectCache opens the valkey cache. The cache is optional: an unreachable
// cache is logged and the pipeline runs without it.
func (a *app) connectCache(ctx context.Context) *dbValkey.Store {
	cc := a.cfg.Cache
	if !cc.Enabled() {
		return nil
	}
	store, err := dbValkey.NewStore(dbValkey.Config{Addrs: cc.Addrs, Password: cc.Password})
	if err != nil {
		a.logger.Warn("Embedding cache disabled", zap.Error(err))
		return nil
	}
	if err := store.WaitForReady(ctx, time.Duration(cc.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		a.logger.Warn("Embedding cache not ready, continuing without it", zap.Error(err))
		return nil
	}
	a.onClose(store.Close)
	a.logger.Info("Connected to embedding cache", zap.Strings("addrs", cc.Addrs))
	return store
}

// decorate assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
func (a *app) decorate(provider domain.TextEmbedder, cache *dbValkey.Store) domain.TextEmbedder {
	embedder := provider

	// No store, no decorator: a typed nil *Store inside the interface is not nil.
	if cache != nil {
		embedder = embcache.New(
			embedder, cache, time.Duration(a.cfg.Cache.TTLSec)*time.Second, metrics.EmbeddingCacheTotal, a.logger,
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, a.cfg.Embedding.Provider, 0, a.logger)

	// Instruction prefix outermost: the cache key already includes the prefixed text.
	if a.cfg.Embedding.Instruction != "" {
		return domain.NewInstructionEmbedder(embedder, a.cfg.Embedding.Instruction)
	}
	return embedder
}

// buildGenerator returns the configured generator or the absent state.
func (a *app) buildGenerator(ctx context.Context) (domain.Generation, error) {
	gc := a.cfg.Generation
	switch gc.Provider {
	case config.ProviderNone:
		return domain.NoGenerator(), nil
	case config.ProviderOpenAI:
		g := openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:  gc.APIKey,
			BaseURL: gc.BaseURL,
			Model:   gc.Model,
			Timeout: time.Duration(gc.TimeoutSec) * time.Second,
			Logger:  a.logger,
		})
		return domain.WithGenerator(g, g.Name()), nil
	case config.ProviderGemini:
		cfg := &geminiTransport.Config{
			APIKey:   gc.APIKey,
			Project:  gc.Project,
			Location: gc.Location,
			Model:    gc.Model,
			Logger:   a.logger,
		}
		client, err := geminiTransport.NewClient(ctx, cfg)
		if err != nil {
			return domain.Generation{}, err
		}
		g := geminiTransport.NewGenerator(client, cfg)
		return domain.WithGenerator(g, g.Name()), nil
	default:
		return domain.Generation{}, domain.NewConfigurationError(
			"generation.provider", fmt.Sprintf("unknown provider %q", gc.Provider),
		)
	}
}

func (a *app) policy() confidence.Policy {
	c := a.cfg.Confidence
	return confidence.Policy{
		Base:                       *c.Base,
		SimilarityWeight:           *c.SimilarityWeight,
		ConsequenceBonus:           *c.ConsequenceBonus,
		SignificanceBonus:          *c.SignificanceBonus,
		HighConfidenceConsequences: c.HighConfidenceConsequences,
	}
}

// options maps index config onto pipeline options.
func (a *app) options() pipeline.Options {
	ic := a.cfg.Index
	return pipeline.Options{
		TopK: ic.TopK,
		Filter: confidence.FilterOptions{
			MinSimilarity:    *ic.MinSimilarity,
			RequiredFields:   ic.RequiredFields,
			ExcludeUncertain: ic.ExcludeUncertain,
		},
		Concurrency: ic.Concurrency,
	}
}
