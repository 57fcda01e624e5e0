package retrieval

import (
	"context"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
	"github.com/kailas-cloud/vexplain/internal/index"
)

// Index is the read side of a loaded index bundle.
type Index interface {
	Search(query []float32, k int) ([]index.Hit, error)
	Record(position int) record.Record
	Descriptor() index.Descriptor
}

// Embedder vectorizes query text. Its ModelID must match the index descriptor.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	ModelID() string
}
