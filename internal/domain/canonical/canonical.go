// Package canonical builds the deterministic text that records and query
// variants are embedded from. Records and variants share labels and the
// separator so their embeddings are comparable.
package canonical

import "strings"

// Separator joins labelled parts.
const Separator = " | "

// Field labels, in canonical order.
const (
	LabelGene                 = "Gene"
	LabelConsequence          = "Consequence"
	LabelClinicalSignificance = "Clinical significance"
	LabelCondition            = "Condition"
	LabelSummary              = "Summary"
	LabelImpact               = "Impact"
	LabelProtein              = "Protein"
	LabelKnownVariant         = "Known variant"
)

// Builder accumulates "Label: value" parts, skipping empty values.
type Builder struct {
	parts []string
}

// Add appends a part when value is non-empty after trimming.
func (b *Builder) Add(label, value string) *Builder {
	value = strings.TrimSpace(value)
	if value == "" {
		return b
	}
	b.parts = append(b.parts, label+": "+value)
	return b
}

// Len returns the number of parts added.
func (b *Builder) Len() int { return len(b.parts) }

// String joins all parts with Separator.
func (b *Builder) String() string {
	return strings.Join(b.parts, Separator)
}
