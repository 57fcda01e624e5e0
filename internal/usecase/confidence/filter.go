package confidence

import (
	"strings"

	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
)

// FilterOptions selects which retrieval results count as evidence.
type FilterOptions struct {
	MinSimilarity    float64
	RequiredFields   []string
	ExcludeUncertain bool
}

// Filter keeps results at or above MinSimilarity that have every required
// field. Order is preserved and the input slice is not modified.
func Filter(results []domret.Result, opts FilterOptions) []domret.Result {
	out := make([]domret.Result, 0, len(results))
	for i := range results {
		if keep(&results[i], opts) {
			out = append(out, results[i])
		}
	}
	return out
}

func keep(r *domret.Result, opts FilterOptions) bool {
	if r.Score() < opts.MinSimilarity {
		return false
	}
	rec := r.Record()
	for _, f := range opts.RequiredFields {
		if strings.TrimSpace(rec.Field(f)) == "" {
			return false
		}
	}
	if opts.ExcludeUncertain && rec.IsUncertain() {
		return false
	}
	return true
}
