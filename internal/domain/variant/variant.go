// Package variant defines the caller's query variant: annotation fields keyed by name.
package variant

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vexplain/internal/domain/canonical"
)

// Field is a known annotation field of a query variant.
type Field string

// Known annotation fields.
const (
	VariantID            Field = "variant_id"
	Gene                 Field = "gene"
	Consequence          Field = "consequence"
	ClinicalSignificance Field = "clinical_significance"
	Impact               Field = "impact"
	ProteinPosition      Field = "protein_position"
	AminoAcids           Field = "amino_acids"
	KnownVariant         Field = "known_variant"
	PopulationFrequency  Field = "population_frequency"
	DbSNPID              Field = "dbsnp_id"
	ClinVarID            Field = "clinvar_id"
	ClinVarConditions    Field = "clinvar_conditions"
	GenomicPosition      Field = "genomic_position"
	PriorityRank         Field = "priority_rank"
	PathogenicityScore   Field = "pathogenicity_score"
)

// columns lists, per field, the accepted column names (normalized: lowercase,
// alphanumerics only) in precedence order. The VEP column comes first, so a
// row carrying both Gene and SYMBOL always resolves to Gene.
var columns = []struct {
	field Field
	names []string
}{
	{VariantID, []string{"variantid", "id"}},
	{Gene, []string{"gene", "symbol"}},
	{Consequence, []string{"consequence"}},
	{ClinicalSignificance, []string{"clinicalsignificance", "clinsig"}},
	{Impact, []string{"impact"}},
	{ProteinPosition, []string{"proteinposition"}},
	{AminoAcids, []string{"aminoacids", "proteinchange"}},
	{KnownVariant, []string{"existingvariation", "knownvariant", "knownvariantid"}},
	{PopulationFrequency, []string{"gnomadaf", "populationfrequency"}},
	{DbSNPID, []string{"dbsnpid"}},
	{ClinVarID, []string{"clinvarid"}},
	{ClinVarConditions, []string{"clinvarconditions"}},
	{GenomicPosition, []string{"genomicposition"}},
	{PriorityRank, []string{"priorityrank"}},
	{PathogenicityScore, []string{"pathogenicityscore"}},
}

// Variant is a transient query built per request. The zero value is a valid empty variant.
type Variant struct {
	fields map[Field]string
}

// New creates a variant from known fields. Empty values are dropped.
func New(fields map[Field]string) Variant {
	v := Variant{fields: make(map[Field]string, len(fields))}
	for k, val := range fields {
		if val = strings.TrimSpace(val); val != "" {
			v.fields[k] = val
		}
	}
	return v
}

// FromMap builds a variant from loosely named columns (VEP, snake_case or
// camel case). Unknown keys are ignored. When several columns feed one field
// the first non-empty one in precedence order wins; keys that differ only in
// case or punctuation resolve in sorted key order.
func FromMap(raw map[string]string) Variant {
	keys := slices.Sorted(maps.Keys(raw))
	byName := make(map[string]string, len(raw))
	for _, k := range keys {
		name := normalizeKey(k)
		if val := strings.TrimSpace(raw[k]); val != "" && byName[name] == "" {
			byName[name] = val
		}
	}

	fields := make(map[Field]string, len(columns))
	for _, c := range columns {
		for _, name := range c.names {
			if val := byName[name]; val != "" {
				fields[c.field] = val
				break
			}
		}
	}
	return New(fields)
}

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Get returns a field value or "".
func (v Variant) Get(f Field) string { return v.fields[f] }

// Has reports whether a field is present.
func (v Variant) Has(f Field) bool {
	_, ok := v.fields[f]
	return ok
}

// Fields returns a copy of all present fields.
func (v Variant) Fields() map[Field]string {
	out := make(map[Field]string, len(v.fields))
	for k, val := range v.fields {
		out[k] = val
	}
	return out
}

// ID returns the variant identifier, possibly empty.
func (v Variant) ID() string { return v.fields[VariantID] }

// Key returns the identifier, or a positional fallback for anonymous variants.
func (v Variant) Key(position int) string {
	if id := v.ID(); id != "" {
		return id
	}
	return "variant_" + strconv.Itoa(position)
}

// Float parses a numeric field. ok is false when absent or unparsable.
func (v Variant) Float(f Field) (float64, bool) {
	s, present := v.fields[f]
	if !present {
		return 0, false
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return x, true
}

// CanonicalText renders the query as embedding input. Labels and separator
// match record.Record.CanonicalText on the overlapping fields.
func (v Variant) CanonicalText() string {
	var b canonical.Builder
	b.Add(canonical.LabelGene, v.Get(Gene)).
		Add(canonical.LabelConsequence, v.Get(Consequence)).
		Add(canonical.LabelClinicalSignificance, v.Get(ClinicalSignificance)).
		Add(canonical.LabelImpact, v.Get(Impact)).
		Add(canonical.LabelProtein, v.proteinText()).
		Add(canonical.LabelKnownVariant, v.Get(KnownVariant))
	return b.String()
}

func (v Variant) proteinText() string {
	var parts []string
	if p := v.Get(ProteinPosition); p != "" {
		parts = append(parts, "position "+p)
	}
	if aa := v.Get(AminoAcids); aa != "" {
		parts = append(parts, "amino acid change "+aa)
	}
	return strings.Join(parts, " ")
}

// WithID returns a copy of v with the identifier set.
func (v Variant) WithID(id string) Variant {
	fields := v.Fields()
	fields[VariantID] = id
	return New(fields)
}
