package index

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
)

func testBundle(t *testing.T, n int) *Bundle {
	t.Helper()
	vecs := make([][]float32, n)
	recs := make([]record.Record, n)
	for i := range n {
		vecs[i] = []float32{float32(i + 1), float32(n - i), 0.5}
		recs[i] = record.Record{
			ID:                   fmt.Sprintf("VCV%06d", i),
			Gene:                 "BRCA1",
			Consequence:          "missense_variant",
			ClinicalSignificance: "Pathogenic",
			Locus:                record.Locus{Chromosome: "17", Position: int64(43044295 + i), Ref: "A", Alt: "G"},
		}
	}
	flat, err := NewFlat(3, vecs)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	b, err := NewBundle(flat, recs, NewDescriptor("test-model", 3, n))
	if err != nil {
		t.Fatalf("NewBundle: %v", err)
	}
	return b
}

func TestBundle_SaveLoadRoundTrip(t *testing.T) {
	for _, n := range []int{1, 5, 1000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			dir := t.TempDir()
			b := testBundle(t, n)
			if err := b.Save(dir); err != nil {
				t.Fatalf("Save: %v", err)
			}

			loaded, err := Load(dir)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Len() != n || loaded.Index().Count() != n || loaded.Descriptor().VectorCount != n {
				t.Fatalf("counts: len=%d vectors=%d descriptor=%d, want %d",
					loaded.Len(), loaded.Index().Count(), loaded.Descriptor().VectorCount, n)
			}
			if loaded.Descriptor().BuildID != b.Descriptor().BuildID {
				t.Errorf("build id changed: %q vs %q", loaded.Descriptor().BuildID, b.Descriptor().BuildID)
			}
			last := loaded.Record(n - 1)
			if last.ID != fmt.Sprintf("VCV%06d", n-1) || last.Locus.Position != int64(43044295+n-1) {
				t.Errorf("last record mismatch: %+v", last)
			}
			for i := range n {
				got, want := loaded.Index().Vector(i), b.Index().Vector(i)
				for j := range got {
					if got[j] != want[j] {
						t.Fatalf("vector %d differs after round trip", i)
					}
				}
			}
		})
	}
}

func TestBundle_ConsistencyChecks(t *testing.T) {
	flat, _ := NewFlat(2, [][]float32{{1, 0}, {0, 1}})
	recs := []record.Record{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		name    string
		records []record.Record
		desc    Descriptor
	}{
		{"metadata short", recs[:1], NewDescriptor("m", 2, 2)},
		{"descriptor count", recs, NewDescriptor("m", 2, 3)},
		{"descriptor dimension", recs, NewDescriptor("m", 4, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBundle(flat, tt.records, tt.desc)
			if !errors.Is(err, domain.ErrCorruptIndex) {
				t.Errorf("expected ErrCorruptIndex, got %v", err)
			}
		})
	}
}

func TestLoad_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	var cfgErr *domain.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if Exists(dir) {
		t.Error("Exists() = true for empty dir")
	}

	if err := testBundle(t, 2).Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists(dir) {
		t.Error("Exists() = false after Save")
	}
	if err := os.Remove(filepath.Join(dir, MetadataFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_MetadataFromDifferentBuild(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	if err := testBundle(t, 3).Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := testBundle(t, 4).Save(other); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(other, MetadataFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Validate(dir); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoad_CorruptVectorFile(t *testing.T) {
	dir := t.TempDir()
	if err := testBundle(t, 3).Save(dir); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, VectorsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[headerSize+2] ^= 0xFF
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoad_BadDescriptor(t *testing.T) {
	dir := t.TempDir()
	if err := testBundle(t, 1).Save(dir); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, DescriptorFile)

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("invalid json: expected ErrCorruptIndex, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"format_version": 99, "embedding_model_id": "m"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("future version: expected ErrCorruptIndex, got %v", err)
	}
}

func TestReadVectors_Truncated(t *testing.T) {
	flat, _ := NewFlat(2, [][]float32{{1, 0}, {0, 1}})
	var buf bytes.Buffer
	if err := WriteVectors(&buf, flat); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	for _, cut := range []int{3, headerSize, len(data) - 1} {
		if _, err := ReadVectors(bytes.NewReader(data[:cut])); !errors.Is(err, domain.ErrCorruptIndex) {
			t.Errorf("cut=%d: expected ErrCorruptIndex, got %v", cut, err)
		}
	}
	if _, err := ReadVectors(bytes.NewReader(append(bytes.Clone(data), 0))); !errors.Is(err, domain.ErrCorruptIndex) {
		t.Errorf("trailing byte: expected ErrCorruptIndex, got %v", err)
	}
}

func TestBundle_Contains(t *testing.T) {
	b := testBundle(t, 2)
	if !b.Contains("VCV000001") {
		t.Error("expected VCV000001 to be indexed")
	}
	if b.Contains("VCV999999") {
		t.Error("unexpected VCV999999")
	}
}
