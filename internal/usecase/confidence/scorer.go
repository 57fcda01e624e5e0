package confidence

import (
	"strings"

	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
)

// Scorer computes bounded confidence from evidence and annotation quality.
type Scorer struct {
	policy  Policy
	highSet map[string]struct{}
}

// NewScorer validates the policy and returns a scorer.
func NewScorer(p Policy) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(p.HighConfidenceConsequences))
	for _, c := range p.HighConfidenceConsequences {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &Scorer{policy: p, highSet: set}, nil
}

// Score returns a value in [0, 1].
func (s *Scorer) Score(v variant.Variant, results []domret.Result) float64 {
	score := s.policy.Base

	if len(results) > 0 {
		var sum float64
		for i := range results {
			sum += results[i].Score()
		}
		score += sum / float64(len(results)) * s.policy.SimilarityWeight
	}

	if s.IsHighConfidence(v.Get(variant.Consequence)) {
		score += s.policy.ConsequenceBonus
	}

	if sig := v.Get(variant.ClinicalSignificance); sig != "" && !strings.EqualFold(sig, "unknown") {
		score += s.policy.SignificanceBonus
	}

	return min(max(score, 0), 1)
}

// IsHighConfidence reports whether any term of a VEP consequence string
// ("stop_gained&splice_region_variant") is in the high-confidence set.
func (s *Scorer) IsHighConfidence(consequence string) bool {
	for _, term := range strings.FieldsFunc(consequence, func(r rune) bool { return r == '&' || r == ',' }) {
		if _, ok := s.highSet[strings.ToLower(strings.TrimSpace(term))]; ok {
			return true
		}
	}
	return false
}
