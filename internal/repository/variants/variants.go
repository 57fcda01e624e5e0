// Package variants loads annotated query variants and selects which to explain.
package variants

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/repository/tabular"
)

// Load reads annotated variants (VEP table) from path in file order.
func Load(path string) ([]variant.Variant, error) {
	rows, err := tabular.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	out := make([]variant.Variant, len(rows))
	for i, row := range rows {
		out[i] = variant.FromMap(row)
	}
	return out, nil
}

// Prioritize returns at most limit variants. When trimming is needed the
// order is Priority_Rank ascending if any variant has one, else
// Pathogenicity_Score descending if any variant has one, else input order.
// Variants lacking the sort value go last, in input order.
// limit <= 0 keeps everything. The input slice is not modified.
func Prioritize(vs []variant.Variant, limit int) []variant.Variant {
	if limit <= 0 || len(vs) <= limit {
		return vs
	}

	sorted := slices.Clone(vs)
	switch {
	case anyHas(vs, variant.PriorityRank):
		slices.SortStableFunc(sorted, byField(variant.PriorityRank, false))
	case anyHas(vs, variant.PathogenicityScore):
		slices.SortStableFunc(sorted, byField(variant.PathogenicityScore, true))
	}
	return sorted[:limit]
}

// byField orders by a numeric field, missing values last.
func byField(f variant.Field, desc bool) func(a, b variant.Variant) int {
	return func(a, b variant.Variant) int {
		x, okA := a.Float(f)
		y, okB := b.Float(f)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		case desc:
			return cmp.Compare(y, x)
		default:
			return cmp.Compare(x, y)
		}
	}
}

func anyHas(vs []variant.Variant, f variant.Field) bool {
	for _, v := range vs {
		if _, ok := v.Float(f); ok {
			return true
		}
	}
	return false
}
