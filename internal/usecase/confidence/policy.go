// Package confidence scores retrieval evidence and filters weak candidates.
package confidence

import (
	"fmt"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Policy holds the additive scoring weights. All weights are non-negative,
// so more or better evidence never lowers the score.
type Policy struct {
	Base                       float64
	SimilarityWeight           float64
	ConsequenceBonus           float64
	SignificanceBonus          float64
	HighConfidenceConsequences []string
}

// DefaultPolicy returns the reference weights.
func DefaultPolicy() Policy {
	return Policy{
		Base:              0.5,
		SimilarityWeight:  0.3,
		ConsequenceBonus:  0.2,
		SignificanceBonus: 0.1,
		HighConfidenceConsequences: []string{
			"stop_gained",
			"frameshift_variant",
			"splice_acceptor_variant",
			"splice_donor_variant",
		},
	}
}

// Validate rejects negative weights.
func (p Policy) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"confidence.base", p.Base},
		{"confidence.similarity_weight", p.SimilarityWeight},
		{"confidence.consequence_bonus", p.ConsequenceBonus},
		{"confidence.significance_bonus", p.SignificanceBonus},
	}
	for _, w := range weights {
		if w.value < 0 {
			return domain.NewConfigurationError(w.name, fmt.Sprintf("must be >= 0, got %g", w.value))
		}
	}
	return nil
}
