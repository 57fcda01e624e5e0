package indexbuild

import (
	"context"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Embedder vectorizes canonical record text. ModelID is recorded in the descriptor.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	ModelID() string
}
