package index

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// FormatVersion is the current on-disk bundle version.
const FormatVersion = 1

// Descriptor identifies an index build and the embedding space it lives in.
type Descriptor struct {
	FormatVersion    int       `json:"format_version"`
	BuildID          string    `json:"build_id"`
	EmbeddingModelID string    `json:"embedding_model_id"`
	Dimension        int       `json:"dimension"`
	VectorCount      int       `json:"vector_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewDescriptor creates a descriptor for a fresh build.
func NewDescriptor(modelID string, dim, count int) Descriptor {
	return Descriptor{
		FormatVersion:    FormatVersion,
		BuildID:          uuid.NewString(),
		EmbeddingModelID: modelID,
		Dimension:        dim,
		VectorCount:      count,
		CreatedAt:        time.Now().UTC(),
	}
}

func writeDescriptor(path string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}
	return writeFileAtomic(path, func(f *os.File) error {
		_, err := f.Write(append(data, '\n'))
		return err
	})
}

func readDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, domain.NewCorruptIndex("descriptor is not valid JSON: %v", err)
	}
	if d.FormatVersion != FormatVersion {
		return Descriptor{}, domain.NewCorruptIndex("unsupported index format version %d (want %d)",
			d.FormatVersion, FormatVersion)
	}
	if d.EmbeddingModelID == "" {
		return Descriptor{}, domain.NewCorruptIndex("descriptor has no embedding_model_id")
	}
	return d, nil
}
