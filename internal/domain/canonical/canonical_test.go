package canonical

import "testing"

func TestBuilder_SkipsEmptyAndTrims(t *testing.T) {
	var b Builder
	b.Add(LabelGene, " BRCA1 ").
		Add(LabelConsequence, "").
		Add(LabelClinicalSignificance, "   ").
		Add(LabelCondition, "Breast cancer")

	want := "Gene: BRCA1 | Condition: Breast cancer"
	if got := b.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBuilder_Empty(t *testing.T) {
	var b Builder
	if b.String() != "" {
		t.Errorf("expected empty string, got %q", b.String())
	}
}
