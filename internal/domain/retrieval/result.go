// Package retrieval holds candidate records returned by similarity search.
package retrieval

import "github.com/kailas-cloud/vexplain/internal/domain/record"

// Result is a single similarity hit.
type Result struct {
	record   record.Record
	score    float64
	rank     int
	position int
}

// New creates a retrieval result. rank is 1-based; position is the index slot.
func New(rec record.Record, score float64, rank, position int) Result {
	return Result{record: rec, score: score, rank: rank, position: position}
}

// Record returns the matched knowledge record.
func (r *Result) Record() record.Record { return r.record }

// ID returns the matched record identifier.
func (r *Result) ID() string { return r.record.ID }

// Score returns the cosine similarity in [-1, 1].
func (r *Result) Score() float64 { return r.score }

// Rank returns the 1-based position in the result list.
func (r *Result) Rank() int { return r.rank }

// Position returns the index slot of the matched vector.
func (r *Result) Position() int { return r.position }

// IDs returns the record ids of results in order.
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID()
	}
	return ids
}
