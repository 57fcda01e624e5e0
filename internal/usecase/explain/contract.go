package explain

import (
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
)

// Scorer derives confidence from a variant and its evidence.
type Scorer interface {
	Score(v variant.Variant, evidence []domret.Result) float64
}
