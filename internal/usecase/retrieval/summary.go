package retrieval

import (
	"cmp"
	"math"
	"slices"

	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
)

const topGenesLimit = 10

// SimilarityStats describes the similarity scores of all retrieved records.
type SimilarityStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// GeneCount is how often a gene appeared among retrieved records.
type GeneCount struct {
	Gene  string `json:"gene"`
	Count int    `json:"count"`
}

// Summary aggregates a batch search for reporting.
type Summary struct {
	TotalQueries         int             `json:"total_query_variants"`
	TotalRetrieved       int             `json:"total_retrieved_variants"`
	Similarity           SimilarityStats `json:"similarity_scores"`
	TopGenes             []GeneCount     `json:"top_genes_retrieved"`
	ClinicalSignificance map[string]int  `json:"clinical_significance_distribution"`
}

// Summarize computes statistics over a BatchSearch result. Queries sharing
// an id count once there; use SummarizeQueries to count every query.
func Summarize(batch map[string][]domret.Result) Summary {
	perQuery := make([][]domret.Result, 0, len(batch))
	for _, results := range batch {
		perQuery = append(perQuery, results)
	}
	return SummarizeQueries(perQuery)
}

// SummarizeQueries computes statistics with one entry per query, in any order.
func SummarizeQueries(perQuery [][]domret.Result) Summary {
	s := Summary{
		TotalQueries:         len(perQuery),
		TopGenes:             []GeneCount{},
		ClinicalSignificance: map[string]int{},
	}

	var scores []float64
	genes := map[string]int{}
	for _, results := range perQuery {
		for i := range results {
			rec := results[i].Record()
			scores = append(scores, results[i].Score())
			if rec.Gene != "" {
				genes[rec.Gene]++
			}
			sig := rec.ClinicalSignificance
			if sig == "" {
				sig = "Unknown"
			}
			s.ClinicalSignificance[sig]++
		}
	}
	s.TotalRetrieved = len(scores)
	if len(scores) == 0 {
		return s
	}

	s.Similarity = similarityStats(scores)

	for g, n := range genes {
		s.TopGenes = append(s.TopGenes, GeneCount{Gene: g, Count: n})
	}
	slices.SortFunc(s.TopGenes, func(a, b GeneCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Gene, b.Gene)
	})
	if len(s.TopGenes) > topGenesLimit {
		s.TopGenes = s.TopGenes[:topGenesLimit]
	}
	return s
}

func similarityStats(scores []float64) SimilarityStats {
	sorted := slices.Clone(scores)
	slices.Sort(sorted)

	var sum float64
	for _, x := range sorted {
		sum += x
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, x := range sorted {
		sq += (x - mean) * (x - mean)
	}

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return SimilarityStats{
		Mean:   mean,
		Median: median,
		Std:    math.Sqrt(sq / float64(n)),
	}
}
