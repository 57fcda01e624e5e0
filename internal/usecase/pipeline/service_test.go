package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/batch"
	"github.com/kailas-cloud/vexplain/internal/domain/explanation"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
	"github.com/kailas-cloud/vexplain/internal/index"
	"github.com/kailas-cloud/vexplain/internal/usecase/confidence"
	"github.com/kailas-cloud/vexplain/internal/usecase/explain"
	"github.com/kailas-cloud/vexplain/internal/usecase/indexbuild"
)

// --- Mocks ---

type mockLoader struct {
	records []record.Record
	err     error
}

func (m *mockLoader) Load(string) ([]record.Record, error) { return m.records, m.err }

// wordEmbedder gives every distinct lowercase token its own axis.
type wordEmbedder struct {
	model  string
	failOn string

	mu    sync.Mutex
	vocab map[string]int
}

func newWordEmbedder(model string) *wordEmbedder {
	return &wordEmbedder{model: model, vocab: map[string]int{}}
}

func (e *wordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return domain.EmbeddingResult{}, errors.New("embedding rejected")
	}
	v := make([]float32, 128)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		slot, ok := e.vocab[tok]
		if !ok {
			slot = len(e.vocab)
			e.vocab[tok] = slot
		}
		v[slot%len(v)]++
	}
	return domain.EmbeddingResult{Embedding: v}, nil
}

func (e *wordEmbedder) ModelID() string { return e.model }

type panickingExplainer struct{ on string }

func (p panickingExplainer) Explain(
	_ context.Context, v variant.Variant, _ []domret.Result,
) explanation.Explanation {
	if v.Get(variant.Gene) == p.on {
		panic("template exploded")
	}
	return explanation.Explanation{VariantID: v.ID(), GeneratorUsed: explanation.GeneratorFallback}
}

func knowledgeBase() []record.Record {
	return []record.Record{
		{ID: "VCV1", Gene: "BRCA1", Consequence: "stop_gained", ClinicalSignificance: "Pathogenic", Condition: "Breast cancer"},
		{ID: "VCV2", Gene: "TP53", Consequence: "missense_variant", ClinicalSignificance: "Pathogenic", Condition: "Li-Fraumeni syndrome"},
		{ID: "VCV3", Gene: "CFTR", Consequence: "frameshift_variant", ClinicalSignificance: "Pathogenic", Condition: "Cystic fibrosis"},
		{ID: "VCV4", Gene: "HBB", Consequence: "missense_variant", ClinicalSignificance: "Benign"},
	}
}

func newPipeline(t *testing.T, emb *wordEmbedder, explainer Explainer, recs []record.Record) *Service {
	t.Helper()
	if explainer == nil {
		scorer, err := confidence.NewScorer(confidence.DefaultPolicy())
		if err != nil {
			t.Fatal(err)
		}
		explainer = explain.New(domain.NoGenerator(), scorer, explain.DefaultConfig(), zap.NewNop())
	}
	builder := indexbuild.New(emb, zap.NewNop())
	return New(&mockLoader{records: recs}, builder, emb, explainer, zap.NewNop())
}

func defaultOptions() Options {
	return Options{
		TopK: 3,
		Filter: confidence.FilterOptions{
			MinSimilarity:  0.1,
			RequiredFields: []string{"gene", "clinical_significance"},
		},
		Concurrency: 2,
	}
}

func queries() []variant.Variant {
	return []variant.Variant{
		variant.New(map[variant.Field]string{
			variant.VariantID:            "q1",
			variant.Gene:                 "BRCA1",
			variant.Consequence:          "stop_gained",
			variant.ClinicalSignificance: "Pathogenic",
		}),
		variant.New(map[variant.Field]string{variant.Gene: "TP53", variant.Consequence: "missense_variant"}),
		variant.New(nil),
	}
}

// --- Tests ---

func TestBuildAndExplain(t *testing.T) {
	dir := t.TempDir()
	emb := newWordEmbedder("words-v1")
	p := newPipeline(t, emb, nil, knowledgeBase())

	got, err := p.BuildIndex(context.Background(), "clinvar.tsv", dir)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if got != dir {
		t.Errorf("BuildIndex returned %q, want %q", got, dir)
	}
	desc, err := index.Validate(dir)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if desc.VectorCount != 4 || desc.EmbeddingModelID != "words-v1" {
		t.Errorf("descriptor = %+v", desc)
	}

	rep, err := p.ExplainVariants(context.Background(), queries(), dir, defaultOptions())
	if err != nil {
		t.Fatalf("ExplainVariants: %v", err)
	}
	if len(rep.Explanations) != 3 || len(rep.Items) != 3 {
		t.Fatalf("got %d explanations, %d items", len(rep.Explanations), len(rep.Items))
	}

	first := rep.Explanations[0]
	if first.VariantID != "q1" || first.GeneratorUsed != explanation.GeneratorFallback {
		t.Errorf("first = %+v", first)
	}
	if len(first.CitedRecordIDs) == 0 || first.CitedRecordIDs[0] != "VCV1" {
		t.Errorf("cited = %v", first.CitedRecordIDs)
	}
	if first.ConfidenceScore <= 0.5 || first.ConfidenceScore > 1 {
		t.Errorf("confidence = %f", first.ConfidenceScore)
	}

	if rep.Explanations[1].VariantID != "variant_1" {
		t.Errorf("anonymous variant id = %q", rep.Explanations[1].VariantID)
	}

	empty := rep.Explanations[2]
	if empty.EvidenceCount != 0 || !strings.Contains(empty.Text, "No prior evidence") {
		t.Errorf("empty query explanation = %+v", empty)
	}
	if batch.Count(rep.Items, batch.StatusOK) != 3 {
		t.Errorf("items = %+v", rep.Items)
	}
	if rep.Summary.TotalQueries != 3 {
		t.Errorf("summary = %+v", rep.Summary)
	}
}

func TestExplainVariants_DuplicateIDsCountedPerRow(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t, newWordEmbedder("words-v1"), nil, knowledgeBase())
	if _, err := p.BuildIndex(context.Background(), "clinvar.tsv", dir); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	dup := func(gene string) variant.Variant {
		return variant.New(map[variant.Field]string{
			variant.VariantID:            "same",
			variant.Gene:                 gene,
			variant.ClinicalSignificance: "Pathogenic",
		})
	}
	rep, err := p.ExplainVariants(context.Background(),
		[]variant.Variant{dup("BRCA1"), dup("TP53")}, dir, defaultOptions())
	if err != nil {
		t.Fatalf("ExplainVariants: %v", err)
	}
	if len(rep.Explanations) != 2 {
		t.Fatalf("got %d explanations", len(rep.Explanations))
	}
	if rep.Summary.TotalQueries != 2 {
		t.Errorf("TotalQueries = %d, want 2", rep.Summary.TotalQueries)
	}
	if rep.Summary.TotalRetrieved < 2 {
		t.Errorf("TotalRetrieved = %d, want results from both rows", rep.Summary.TotalRetrieved)
	}
}

func TestExplainVariants_MissingIndex(t *testing.T) {
	p := newPipeline(t, newWordEmbedder("m"), nil, knowledgeBase())
	_, err := p.ExplainVariants(context.Background(), queries(), t.TempDir(), defaultOptions())
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestExplainVariants_ModelMismatch(t *testing.T) {
	dir := t.TempDir()
	if _, err := newPipeline(t, newWordEmbedder("m1"), nil, knowledgeBase()).
		BuildIndex(context.Background(), "", dir); err != nil {
		t.Fatal(err)
	}

	other := newPipeline(t, newWordEmbedder("m2"), nil, knowledgeBase())
	_, err := other.ExplainVariants(context.Background(), queries(), dir, defaultOptions())
	var mm *domain.ModelMismatchError
	if !errors.As(err, &mm) {
		t.Errorf("expected ModelMismatchError, got %v", err)
	}
}

func TestExplainVariants_InvalidOptions(t *testing.T) {
	p := newPipeline(t, newWordEmbedder("m"), nil, knowledgeBase())

	opts := defaultOptions()
	opts.TopK = 0
	if _, err := p.ExplainVariants(context.Background(), queries(), t.TempDir(), opts); !errors.Is(err, domain.ErrInvalidK) {
		t.Errorf("expected ErrInvalidK, got %v", err)
	}

	opts = defaultOptions()
	opts.Filter.MinSimilarity = 1.5
	if _, err := p.ExplainVariants(context.Background(), queries(), t.TempDir(), opts); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestExplainVariants_RetrievalFailureIsIsolated(t *testing.T) {
	dir := t.TempDir()
	emb := newWordEmbedder("m")
	p := newPipeline(t, emb, nil, knowledgeBase())
	if _, err := p.BuildIndex(context.Background(), "", dir); err != nil {
		t.Fatal(err)
	}

	emb.failOn = "TP53"
	rep, err := p.ExplainVariants(context.Background(), queries(), dir, defaultOptions())
	if err != nil {
		t.Fatalf("ExplainVariants: %v", err)
	}
	if rep.Items[1].Status() != batch.StatusDegraded || rep.Items[1].Err() == nil {
		t.Errorf("item 1 = %+v", rep.Items[1])
	}
	if rep.Explanations[1].EvidenceCount != 0 || rep.Explanations[1].Text == "" {
		t.Errorf("explanation 1 = %+v", rep.Explanations[1])
	}
	if rep.Items[0].Status() != batch.StatusOK {
		t.Errorf("item 0 = %+v", rep.Items[0])
	}
}

func TestExplainVariants_ExplainerPanicIsIsolated(t *testing.T) {
	dir := t.TempDir()
	emb := newWordEmbedder("m")
	p := newPipeline(t, emb, panickingExplainer{on: "BRCA1"}, knowledgeBase())
	if _, err := p.BuildIndex(context.Background(), "", dir); err != nil {
		t.Fatal(err)
	}

	rep, err := p.ExplainVariants(context.Background(), queries(), dir, defaultOptions())
	if err != nil {
		t.Fatalf("ExplainVariants: %v", err)
	}
	if rep.Items[0].Status() != batch.StatusDegraded {
		t.Errorf("item 0 = %+v", rep.Items[0])
	}
	if !strings.Contains(rep.Explanations[0].Text, "Manual review recommended") || rep.Explanations[0].ConfidenceScore != 0 {
		t.Errorf("explanation 0 = %+v", rep.Explanations[0])
	}
	if rep.Items[1].Status() != batch.StatusOK {
		t.Errorf("item 1 = %+v", rep.Items[1])
	}
}

func TestAppendIndex(t *testing.T) {
	dir := t.TempDir()
	emb := newWordEmbedder("m")
	loader := &mockLoader{records: knowledgeBase()[:2]}
	p := New(loader, indexbuild.New(emb, zap.NewNop()), emb, nil, zap.NewNop())

	if _, err := p.BuildIndex(context.Background(), "", dir); err != nil {
		t.Fatal(err)
	}
	loader.records = knowledgeBase()
	added, err := p.AppendIndex(context.Background(), "", dir)
	if err != nil {
		t.Fatalf("AppendIndex: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	desc, err := index.Validate(dir)
	if err != nil {
		t.Fatal(err)
	}
	if desc.VectorCount != 4 {
		t.Errorf("vector_count = %d", desc.VectorCount)
	}

	added, err = p.AppendIndex(context.Background(), "", dir)
	if err != nil || added != 0 {
		t.Errorf("second append: added=%d err=%v", added, err)
	}
}

func TestEnsureIndex(t *testing.T) {
	dir := t.TempDir()
	emb := newWordEmbedder("m")
	loader := &mockLoader{records: knowledgeBase()}
	p := New(loader, indexbuild.New(emb, zap.NewNop()), emb, nil, zap.NewNop())

	if err := p.EnsureIndex(context.Background(), "", dir, false); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	first, _ := index.Validate(dir)

	if err := p.EnsureIndex(context.Background(), "", dir, false); err != nil {
		t.Fatal(err)
	}
	same, _ := index.Validate(dir)
	if same.BuildID != first.BuildID {
		t.Error("existing index should not be rebuilt")
	}

	if err := p.EnsureIndex(context.Background(), "", dir, true); err != nil {
		t.Fatal(err)
	}
	rebuilt, _ := index.Validate(dir)
	if rebuilt.BuildID == first.BuildID {
		t.Error("rebuild flag should produce a new build")
	}
}

func TestBuildIndex_LoaderError(t *testing.T) {
	loaderErr := domain.NewConfigurationError("knowledge.source", "unsupported format")
	emb := newWordEmbedder("m")
	p := New(&mockLoader{err: loaderErr}, indexbuild.New(emb, zap.NewNop()), emb, nil, zap.NewNop())
	if _, err := p.BuildIndex(context.Background(), "x.xlsx", t.TempDir()); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
