package indexbuild

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
)

// --- Mocks ---

type mockEmbedder struct {
	model  string
	vecFor func(text string) []float32
	err    error

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, text)
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vecFor(text), TotalTokens: 1}, nil
}

func (m *mockEmbedder) ModelID() string { return m.model }

// oneHot gives each record id its own axis so search results are predictable.
func oneHot(dim int) func(string) []float32 {
	return func(text string) []float32 {
		v := make([]float32, dim)
		var n int
		if _, err := fmt.Sscanf(text[strings.Index(text, "gene")+4:], "%d", &n); err == nil {
			v[n%dim] = 1
		}
		return v
	}
}

func makeRecords(from, to int) []record.Record {
	recs := make([]record.Record, 0, to-from)
	for i := from; i < to; i++ {
		recs = append(recs, record.Record{
			ID:                   fmt.Sprintf("VCV%06d", i),
			Gene:                 fmt.Sprintf("gene%d", i),
			ClinicalSignificance: "Pathogenic",
		})
	}
	return recs
}

// --- Build ---

func TestBuild_PreservesInputOrder(t *testing.T) {
	emb := &mockEmbedder{model: "m1", vecFor: oneHot(16)}
	b := New(emb, zap.NewNop(), WithBatchSize(2), WithConcurrency(3))

	recs := makeRecords(0, 11)
	bundle, err := b.Build(context.Background(), recs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bundle.Len() != 11 || bundle.Index().Count() != 11 {
		t.Fatalf("Len=%d Count=%d, want 11", bundle.Len(), bundle.Index().Count())
	}
	d := bundle.Descriptor()
	if d.EmbeddingModelID != "m1" || d.Dimension != 16 || d.VectorCount != 11 {
		t.Errorf("descriptor = %+v", d)
	}

	for i := range recs {
		if bundle.Record(i).ID != recs[i].ID {
			t.Fatalf("position %d holds %s, want %s", i, bundle.Record(i).ID, recs[i].ID)
		}
		hits, err := bundle.Search(emb.vecFor(recs[i].CanonicalText()), 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if hits[0].Position != i {
			t.Errorf("record %d: top hit at %d", i, hits[0].Position)
		}
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	b := New(&mockEmbedder{model: "m", vecFor: oneHot(4)}, zap.NewNop())
	if _, err := b.Build(context.Background(), nil); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	blank := []record.Record{{ID: "x"}}
	if _, err := b.Build(context.Background(), blank); !errors.Is(err, domain.ErrEmptyInput) {
		t.Errorf("all-blank records: expected ErrEmptyInput, got %v", err)
	}
}

func TestBuild_SkipsBlankRecords(t *testing.T) {
	emb := &mockEmbedder{model: "m", vecFor: oneHot(8)}
	recs := makeRecords(0, 3)
	recs = append(recs[:1], append([]record.Record{{ID: "blank"}}, recs[1:]...)...)

	bundle, err := New(emb, zap.NewNop()).Build(context.Background(), recs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if bundle.Len() != 3 || bundle.Contains("blank") {
		t.Errorf("blank record should be skipped, got %d records", bundle.Len())
	}
	if bundle.Record(1).ID != "VCV000001" {
		t.Errorf("position 1 = %s", bundle.Record(1).ID)
	}
}

func TestBuild_DuplicateIDs(t *testing.T) {
	recs := append(makeRecords(0, 2), makeRecords(1, 2)...)
	b := New(&mockEmbedder{model: "m", vecFor: oneHot(4)}, zap.NewNop())
	if _, err := b.Build(context.Background(), recs); !errors.Is(err, domain.ErrDuplicateRecord) {
		t.Errorf("expected ErrDuplicateRecord, got %v", err)
	}
}

func TestBuild_InconsistentDimension(t *testing.T) {
	emb := &mockEmbedder{model: "m", vecFor: func(text string) []float32 {
		if strings.Contains(text, "gene2") {
			return []float32{1, 0}
		}
		return []float32{1, 0, 0}
	}}
	_, err := New(emb, zap.NewNop(), WithBatchSize(1)).Build(context.Background(), makeRecords(0, 4))
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Position != 2 || dimErr.Expected != 3 || dimErr.Got != 2 {
		t.Errorf("unexpected detail: %+v", dimErr)
	}
}

func TestBuild_EmbedError(t *testing.T) {
	providerErr := errors.New("provider down")
	emb := &mockEmbedder{model: "m", err: providerErr}
	_, err := New(emb, zap.NewNop()).Build(context.Background(), makeRecords(0, 3))
	if !errors.Is(err, providerErr) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestBuild_RecordsUsage(t *testing.T) {
	ctx, usage := domain.NewContextWithUsage(context.Background())
	emb := &mockEmbedder{model: "m", vecFor: oneHot(8)}
	if _, err := New(emb, zap.NewNop(), WithBatchSize(2)).Build(ctx, makeRecords(0, 5)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if usage.TotalTokens() != 5 {
		t.Errorf("TotalTokens = %d, want 5", usage.TotalTokens())
	}
}

// --- Append ---

func TestAppend_EmbedsOnlyNewRecords(t *testing.T) {
	emb := &mockEmbedder{model: "m", vecFor: oneHot(16)}
	b := New(emb, zap.NewNop())

	base, err := b.Build(context.Background(), makeRecords(0, 4))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	emb.calls.Store(0)

	next, added, err := b.Append(context.Background(), base, makeRecords(2, 7))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}
	if got := emb.calls.Load(); got != 3 {
		t.Errorf("embed calls = %d, want 3", got)
	}
	if base.Len() != 4 {
		t.Errorf("base modified: len %d", base.Len())
	}
	if next.Len() != 7 || next.Descriptor().VectorCount != 7 {
		t.Errorf("next len=%d vector_count=%d", next.Len(), next.Descriptor().VectorCount)
	}
	if next.Record(6).ID != "VCV000006" {
		t.Errorf("position 6 = %s", next.Record(6).ID)
	}
	if next.Descriptor().BuildID == base.Descriptor().BuildID {
		t.Error("append should produce a new build id")
	}
}

func TestAppend_LargeIndex(t *testing.T) {
	const n = 50000
	emb := &mockEmbedder{model: "m", vecFor: oneHot(16)}
	b := New(emb, zap.NewNop())

	base, err := b.Build(context.Background(), makeRecords(0, n))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	emb.calls.Store(0)

	next, added, err := b.Append(context.Background(), base, makeRecords(0, n+1))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added != 1 || emb.calls.Load() != 1 {
		t.Errorf("added = %d, embed calls = %d, want 1 and 1", added, emb.calls.Load())
	}
	if next.Len() != n+1 || !next.Contains(fmt.Sprintf("VCV%06d", n)) {
		t.Errorf("next len = %d, new record indexed = %v", next.Len(), next.Contains(fmt.Sprintf("VCV%06d", n)))
	}
	if base.Contains(fmt.Sprintf("VCV%06d", n)) {
		t.Error("base must not see appended records")
	}
}

func BenchmarkAppend_Dedup(b *testing.B) {
	const n = 20000
	builder := New(&mockEmbedder{model: "m", vecFor: oneHot(16)}, zap.NewNop())
	base, err := builder.Build(context.Background(), makeRecords(0, n))
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	records := makeRecords(0, n)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := builder.Append(context.Background(), base, records); err != nil {
			b.Fatal(err)
		}
	}
}

func TestAppend_NothingNew(t *testing.T) {
	b := New(&mockEmbedder{model: "m", vecFor: oneHot(8)}, zap.NewNop())
	base, _ := b.Build(context.Background(), makeRecords(0, 2))
	next, added, err := b.Append(context.Background(), base, makeRecords(0, 2))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added != 0 || next != base {
		t.Errorf("expected base unchanged, added=%d", added)
	}
}

func TestAppend_ModelMismatch(t *testing.T) {
	base, _ := New(&mockEmbedder{model: "m1", vecFor: oneHot(8)}, zap.NewNop()).
		Build(context.Background(), makeRecords(0, 2))

	other := New(&mockEmbedder{model: "m2", vecFor: oneHot(8)}, zap.NewNop())
	_, _, err := other.Append(context.Background(), base, makeRecords(2, 3))
	var mm *domain.ModelMismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("expected ModelMismatchError, got %v", err)
	}
	if mm.IndexModel != "m1" || mm.QueryModel != "m2" {
		t.Errorf("unexpected detail: %+v", mm)
	}
}

func TestAppend_DimensionMismatch(t *testing.T) {
	base, _ := New(&mockEmbedder{model: "m", vecFor: oneHot(8)}, zap.NewNop()).
		Build(context.Background(), makeRecords(0, 2))

	wide := New(&mockEmbedder{model: "m", vecFor: oneHot(12)}, zap.NewNop())
	_, _, err := wide.Append(context.Background(), base, makeRecords(2, 3))
	if !errors.Is(err, domain.ErrEmbeddingDimMismatch) {
		t.Errorf("expected ErrEmbeddingDimMismatch, got %v", err)
	}
}
