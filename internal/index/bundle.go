package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
)

// Artifact file names inside an index directory.
const (
	VectorsFile    = "variants.vxi"
	MetadataFile   = "metadata.parquet"
	DescriptorFile = "descriptor.json"
)

// Bundle is a loaded index: vectors, the aligned metadata table and the descriptor.
// Record i describes vector i. A Bundle is read-only.
type Bundle struct {
	flat    *Flat
	records []record.Record
	ids     map[string]struct{}
	desc    Descriptor
}

// NewBundle assembles a bundle and checks the positional invariant.
func NewBundle(flat *Flat, records []record.Record, desc Descriptor) (*Bundle, error) {
	if err := checkConsistent(flat, records, desc); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(records))
	for i := range records {
		ids[records[i].ID] = struct{}{}
	}
	return &Bundle{flat: flat, records: records, ids: ids, desc: desc}, nil
}

func checkConsistent(flat *Flat, records []record.Record, desc Descriptor) error {
	if flat.Count() != len(records) {
		return domain.NewCorruptIndex("index holds %d vectors but metadata has %d rows",
			flat.Count(), len(records))
	}
	if desc.VectorCount != flat.Count() {
		return domain.NewCorruptIndex("descriptor vector_count %d, index holds %d",
			desc.VectorCount, flat.Count())
	}
	if desc.Dimension != flat.Dimension() {
		return domain.NewCorruptIndex("descriptor dimension %d, index dimension %d",
			desc.Dimension, flat.Dimension())
	}
	return nil
}

// Descriptor returns the build descriptor.
func (b *Bundle) Descriptor() Descriptor { return b.desc }

// Len returns the number of indexed records.
func (b *Bundle) Len() int { return len(b.records) }

// Index returns the underlying vector index.
func (b *Bundle) Index() *Flat { return b.flat }

// Record returns the metadata for index position i.
func (b *Bundle) Record(i int) record.Record { return b.records[i] }

// Records returns a copy of the metadata table.
func (b *Bundle) Records() []record.Record {
	out := make([]record.Record, len(b.records))
	copy(out, b.records)
	return out
}

// Contains reports whether a record with the given id is indexed.
func (b *Bundle) Contains(id string) bool {
	_, ok := b.ids[id]
	return ok
}

// Search delegates to the vector index.
func (b *Bundle) Search(query []float32, k int) ([]Hit, error) {
	return b.flat.Search(query, k)
}

// Save writes all three artifacts into dir, creating it if needed.
// Each file is written to a temporary name and renamed into place;
// the descriptor goes last so a reader never sees it ahead of its data.
func (b *Bundle) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, VectorsFile), func(f *os.File) error {
		return WriteVectors(f, b.flat)
	}); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, MetadataFile), func(f *os.File) error {
		return WriteMetadata(f, b.records)
	}); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	if err := writeDescriptor(filepath.Join(dir, DescriptorFile), b.desc); err != nil {
		return fmt.Errorf("save descriptor: %w", err)
	}
	return nil
}

// Load reads and cross-validates the artifacts in dir.
// Missing artifacts are a ConfigurationError; inconsistent ones a CorruptIndexError.
func Load(dir string) (*Bundle, error) {
	if err := checkPresent(dir); err != nil {
		return nil, err
	}

	desc, err := readDescriptor(filepath.Join(dir, DescriptorFile))
	if err != nil {
		return nil, err
	}

	vf, err := os.Open(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, fmt.Errorf("open vectors: %w", err)
	}
	flat, err := ReadVectors(vf)
	vf.Close()
	if err != nil {
		return nil, err
	}

	mf, err := os.Open(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	records, err := ReadMetadata(mf)
	mf.Close()
	if err != nil {
		return nil, err
	}

	return NewBundle(flat, records, desc)
}

// Validate loads the bundle in dir and returns its descriptor if consistent.
func Validate(dir string) (Descriptor, error) {
	b, err := Load(dir)
	if err != nil {
		return Descriptor{}, err
	}
	return b.desc, nil
}

// Exists reports whether dir holds all three artifacts.
func Exists(dir string) bool {
	return checkPresent(dir) == nil
}

func checkPresent(dir string) error {
	for _, name := range []string{VectorsFile, MetadataFile, DescriptorFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewConfigurationError("index.dir",
				fmt.Sprintf("%s not found in %s; run build-index first", name, dir))
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return nil
}

func writeFileAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
