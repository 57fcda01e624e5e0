package variants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/vexplain/internal/domain/variant"
)

func ids(vs []variant.Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID()
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mk(id, rank, score string) variant.Variant {
	return variant.New(map[variant.Field]string{
		variant.VariantID:          id,
		variant.PriorityRank:       rank,
		variant.PathogenicityScore: score,
	})
}

func TestPrioritize(t *testing.T) {
	tests := []struct {
		name  string
		in    []variant.Variant
		limit int
		want  []string
	}{
		{"under limit", []variant.Variant{mk("a", "3", ""), mk("b", "1", "")}, 5, []string{"a", "b"}},
		{"no limit", []variant.Variant{mk("a", "3", ""), mk("b", "1", "")}, 0, []string{"a", "b"}},
		{"by rank", []variant.Variant{mk("a", "3", "0.9"), mk("b", "1", "0.1"), mk("c", "2", "0.5")}, 2, []string{"b", "c"}},
		{"by score", []variant.Variant{mk("a", "", "0.2"), mk("b", "", "0.9"), mk("c", "", "0.5")}, 2, []string{"b", "c"}},
		{"partial rank sorts missing last", []variant.Variant{mk("a", "", "0.9"), mk("b", "2", "0.1"), mk("c", "", "0.5"), mk("d", "1", "")}, 3, []string{"d", "b", "a"}},
		{"partial score sorts missing last", []variant.Variant{mk("a", "", ""), mk("b", "", "0.2"), mk("c", "", "0.7")}, 2, []string{"c", "b"}},
		{"unparsable rank counts as missing", []variant.Variant{mk("a", "n/a", ""), mk("b", "5", "")}, 1, []string{"b"}},
		{"input order", []variant.Variant{mk("a", "", ""), mk("b", "", ""), mk("c", "", "")}, 2, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Prioritize(tt.in, tt.limit)); !equal(got, tt.want) {
				t.Errorf("Prioritize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrioritize_DoesNotMutateInput(t *testing.T) {
	in := []variant.Variant{mk("a", "3", ""), mk("b", "1", ""), mk("c", "2", "")}
	Prioritize(in, 1)
	if got := ids(in); !equal(got, []string{"a", "b", "c"}) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annotated.tsv")
	content := "Variant_ID\tGene\tConsequence\tClinical_Significance\tIMPACT\n" +
		"v1\tBRCA1\tstop_gained\tPathogenic\tHIGH\n" +
		"v2\tTP53\tmissense_variant\t\tMODERATE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	vs, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(vs))
	}
	if vs[0].ID() != "v1" || vs[0].Get(variant.Impact) != "HIGH" || vs[0].Get(variant.ClinicalSignificance) != "Pathogenic" {
		t.Errorf("vs[0] = %v", vs[0].Fields())
	}
	if vs[1].Has(variant.ClinicalSignificance) {
		t.Error("empty significance should be absent")
	}
}
