// Package explain produces evidence-grounded explanations of query variants.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/explanation"
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/metrics"
)

// Fallback reasons, used as metric labels.
const (
	reasonAbsent    = "absent"
	reasonUnhealthy = "unhealthy"
	reasonTimeout   = "timeout"
	reasonError     = "error"
	reasonEmpty     = "empty"
)

// Config bounds each generator call.
type Config struct {
	MaxTokens     int
	Temperature   float32
	StopSequences []string
	Timeout       time.Duration
	// MaxConsecutiveFailures switches the generator off. 0 disables the switch.
	MaxConsecutiveFailures int
	// Cooldown is the wait before one trial call to a switched-off generator.
	// 0 keeps it off for the service lifetime.
	Cooldown time.Duration
}

// DefaultConfig returns the reference generation settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:              300,
		Temperature:            0.7,
		StopSequences:          []string{"Human:", "Assistant:", "\n\n"},
		Timeout:                30 * time.Second,
		MaxConsecutiveFailures: 3,
		Cooldown:               time.Minute,
	}
}

// Service explains variants with an optional text generator and a
// deterministic template fallback. Safe for concurrent use.
type Service struct {
	gen     domain.Generation
	scorer  Scorer
	cfg     Config
	logger  *zap.Logger
	breaker *breaker
}

// New creates an explanation service.
func New(gen domain.Generation, scorer Scorer, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		gen:     gen,
		scorer:  scorer,
		cfg:     cfg,
		logger:  logger,
		breaker: newBreaker(cfg.MaxConsecutiveFailures, cfg.Cooldown),
	}
}

// Explain never fails: generator problems fall back to the template path.
func (s *Service) Explain(ctx context.Context, v variant.Variant, evidence []domret.Result) explanation.Explanation {
	text, used := s.generate(ctx, v, evidence)
	generator := explanation.GeneratorModel
	if !used {
		text = FallbackText(v, evidence)
		generator = explanation.GeneratorFallback
	}
	metrics.ExplanationsTotal.WithLabelValues(string(generator)).Inc()

	return explanation.Explanation{
		VariantID:            v.ID(),
		Gene:                 v.Get(variant.Gene),
		Consequence:          v.Get(variant.Consequence),
		Text:                 text,
		ConfidenceScore:      s.scorer.Score(v, evidence),
		EvidenceCount:        len(evidence),
		CitedRecordIDs:       domret.IDs(evidence),
		ClinicalSignificance: v.Get(variant.ClinicalSignificance),
		GeneratorUsed:        generator,
		Disclaimers:          explanation.Disclaimers(),
	}
}

// generate returns the model text and true, or "" and false when the
// fallback must be used.
func (s *Service) generate(ctx context.Context, v variant.Variant, evidence []domret.Result) (string, bool) {
	gen, ok := s.gen.Get()
	if !ok {
		metrics.GenerationFallbacksTotal.WithLabelValues(reasonAbsent).Inc()
		return "", false
	}
	if !s.breaker.allow() {
		metrics.GenerationFallbacksTotal.WithLabelValues(reasonUnhealthy).Inc()
		return "", false
	}

	req := domain.GenerateRequest{
		Prompt:        BuildPrompt(v, evidence),
		MaxTokens:     s.cfg.MaxTokens,
		Temperature:   s.cfg.Temperature,
		StopSequences: s.cfg.StopSequences,
	}

	start := time.Now()
	text, err := s.call(ctx, gen, req)
	metrics.GenerationDuration.WithLabelValues(s.gen.Name()).Observe(time.Since(start).Seconds())

	text = strings.TrimSpace(text)
	reason := reasonError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = reasonTimeout
	case err == nil && text == "":
		reason = reasonEmpty
		err = fmt.Errorf("empty output: %w", domain.ErrGenerationFailed)
	}
	if err != nil {
		n := s.breaker.failure()
		metrics.GenerationFallbacksTotal.WithLabelValues(reason).Inc()
		s.logger.Warn("generation failed, using template",
			zap.String("variant_id", v.ID()),
			zap.String("generator", s.gen.Name()),
			zap.String("reason", reason),
			zap.Int("consecutive_failures", n),
			zap.Error(err),
		)
		return "", false
	}

	s.breaker.success()
	return text, true
}

// call runs the generator under the configured timeout. The caller is released
// on timeout even if the generator ignores its context.
func (s *Service) call(ctx context.Context, gen domain.TextGenerator, req domain.GenerateRequest) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := gen.Generate(ctx, req)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, ctx.Err())
	}
}

// HealthCheck reports whether the model path is usable.
func (s *Service) HealthCheck(_ context.Context) error {
	if _, ok := s.gen.Get(); !ok {
		return fmt.Errorf("no generator configured: %w", domain.ErrGeneratorUnavailable)
	}
	if n, off := s.breaker.unavailable(); off {
		return fmt.Errorf("generator %s disabled after %d consecutive failures: %w",
			s.gen.Name(), n, domain.ErrGeneratorUnavailable)
	}
	return nil
}

// GeneratorName returns the configured generator name, or "none".
func (s *Service) GeneratorName() string { return s.gen.Name() }

// Degraded is the placeholder recorded when explaining one variant fails unexpectedly.
func Degraded(v variant.Variant) explanation.Explanation {
	return explanation.Explanation{
		VariantID:            v.ID(),
		Gene:                 v.Get(variant.Gene),
		Consequence:          v.Get(variant.Consequence),
		Text:                 "Explanation generation failed for this variant. Manual review recommended.",
		CitedRecordIDs:       []string{},
		ClinicalSignificance: v.Get(variant.ClinicalSignificance),
		GeneratorUsed:        explanation.GeneratorFallback,
		Disclaimers:          explanation.Disclaimers(),
	}
}
