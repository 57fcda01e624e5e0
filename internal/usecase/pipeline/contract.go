package pipeline

import (
	"context"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/explanation"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/index"
)

// KnowledgeLoader reads reference records from a source path.
type KnowledgeLoader interface {
	Load(path string) ([]record.Record, error)
}

// IndexBuilder embeds records into bundles.
type IndexBuilder interface {
	Build(ctx context.Context, records []record.Record) (*index.Bundle, error)
	Append(ctx context.Context, base *index.Bundle, records []record.Record) (*index.Bundle, int, error)
}

// Explainer turns a variant and its evidence into an explanation.
type Explainer interface {
	Explain(ctx context.Context, v variant.Variant, evidence []domret.Result) explanation.Explanation
}

// Embedder is the query-side embedder; it must match the index model.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	ModelID() string
}
