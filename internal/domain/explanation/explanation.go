// Package explanation defines the structured output of the explanation generator.
package explanation

// Generator records which path produced the explanation text.
type Generator string

// Generator values.
const (
	GeneratorModel    Generator = "model"
	GeneratorFallback Generator = "fallback"
)

var disclaimers = [...]string{
	"This analysis is for research purposes only and should not be used for medical diagnosis.",
	"Consult with a qualified healthcare provider for clinical interpretation.",
	"Variant interpretation may change as new evidence becomes available.",
}

// Disclaimers returns the fixed disclaimer set attached to every explanation.
func Disclaimers() []string {
	out := make([]string, len(disclaimers))
	copy(out, disclaimers[:])
	return out
}

// Explanation is immutable once produced.
type Explanation struct {
	VariantID            string    `json:"variant_id"`
	Gene                 string    `json:"gene"`
	Consequence          string    `json:"consequence"`
	Text                 string    `json:"explanation_text"`
	ConfidenceScore      float64   `json:"confidence_score"`
	EvidenceCount        int       `json:"evidence_count"`
	CitedRecordIDs       []string  `json:"cited_record_ids"`
	ClinicalSignificance string    `json:"clinical_significance"`
	GeneratorUsed        Generator `json:"generator_used"`
	Disclaimers          []string  `json:"disclaimers"`
}
