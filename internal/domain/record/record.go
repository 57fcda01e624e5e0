// Package record defines the reference knowledge entries the index is built from.
package record

import (
	"strings"

	"github.com/kailas-cloud/vexplain/internal/domain/canonical"
)

// Field names usable in required-field checks.
const (
	FieldID                   = "id"
	FieldGene                 = "gene"
	FieldConsequence          = "consequence"
	FieldClinicalSignificance = "clinical_significance"
	FieldCondition            = "condition"
	FieldSummary              = "summary"
	FieldReviewStatus         = "review_status"
	FieldChromosome           = "chromosome"
)

// Locus is the genomic position of a reference variant.
type Locus struct {
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	Ref        string `json:"ref_allele"`
	Alt        string `json:"alt_allele"`
}

// Record is one characterized reference variant. Immutable once indexed.
type Record struct {
	ID                   string `json:"variation_id"`
	Gene                 string `json:"gene"`
	Consequence          string `json:"consequence"`
	ClinicalSignificance string `json:"clinical_significance"`
	Condition            string `json:"condition"`
	Summary              string `json:"summary"`
	ReviewStatus         string `json:"review_status"`
	Locus                Locus  `json:"locus"`
}

// CanonicalText renders the record as embedding input.
func (r *Record) CanonicalText() string {
	var b canonical.Builder
	b.Add(canonical.LabelGene, r.Gene).
		Add(canonical.LabelConsequence, r.Consequence).
		Add(canonical.LabelClinicalSignificance, r.ClinicalSignificance).
		Add(canonical.LabelCondition, r.Condition).
		Add(canonical.LabelSummary, r.Summary)
	return b.String()
}

// Field returns the named field value, or "" for unknown names.
func (r *Record) Field(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FieldID, "variation_id":
		return r.ID
	case FieldGene:
		return r.Gene
	case FieldConsequence:
		return r.Consequence
	case FieldClinicalSignificance:
		return r.ClinicalSignificance
	case FieldCondition:
		return r.Condition
	case FieldSummary:
		return r.Summary
	case FieldReviewStatus:
		return r.ReviewStatus
	case FieldChromosome:
		return r.Locus.Chromosome
	default:
		return ""
	}
}

// IsPathogenic reports a pathogenic or likely pathogenic classification.
// Conflicting interpretations do not count.
func (r *Record) IsPathogenic() bool {
	s := strings.ToLower(r.ClinicalSignificance)
	return strings.Contains(s, "pathogenic") && !strings.Contains(s, "conflicting")
}

// IsUncertain reports uncertain or conflicting classifications.
func (r *Record) IsUncertain() bool {
	s := strings.ToLower(r.ClinicalSignificance)
	return strings.Contains(s, "uncertain") || strings.Contains(s, "conflicting")
}
