package explain

import (
	"fmt"
	"strings"

	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
)

// Consequence categories selecting a fallback template.
const (
	categoryStopGained = "stop_gained"
	categoryFrameshift = "frameshift"
	categoryMissense   = "missense"
	categorySplice     = "splice"
	categoryOther      = "other"
)

const closingSentence = "This interpretation is based on computational analysis and should be confirmed through clinical evaluation."

// Category maps a consequence string to a fallback template key.
func Category(consequence string) string {
	c := strings.ToLower(consequence)
	switch {
	case strings.Contains(c, "stop_gained"):
		return categoryStopGained
	case strings.Contains(c, "frameshift"):
		return categoryFrameshift
	case strings.Contains(c, "missense"):
		return categoryMissense
	case strings.Contains(c, "splice"):
		return categorySplice
	default:
		return categoryOther
	}
}

// FallbackText renders the deterministic explanation. It never returns "".
func FallbackText(v variant.Variant, evidence []domret.Result) string {
	gene := orDefault(v.Get(variant.Gene), "an unknown gene")
	consequence := orDefault(v.Get(variant.Consequence), "variant")
	sig := orDefault(v.Get(variant.ClinicalSignificance), "uncertain significance")

	var text string
	switch Category(consequence) {
	case categoryStopGained:
		text = fmt.Sprintf("This variant in %s introduces a premature stop codon, likely resulting in a truncated "+
			"protein with reduced or abolished function. Such nonsense variants are typically associated "+
			"with loss of gene function.", gene)
	case categoryFrameshift:
		text = fmt.Sprintf("This frameshift variant in %s alters the reading frame, likely producing an abnormal "+
			"protein. Frameshift variants typically result in loss of normal protein function.", gene)
	case categoryMissense:
		text = fmt.Sprintf("This missense variant in %s changes an amino acid in the protein sequence. The "+
			"functional impact depends on the specific amino acid change and its location in the protein structure.", gene)
	case categorySplice:
		text = fmt.Sprintf("This splice site variant in %s may affect normal RNA splicing, potentially leading to "+
			"altered protein production or function.", gene)
	default:
		text = fmt.Sprintf("This %s in %s has %s. Further functional studies may be needed to determine its "+
			"clinical impact.", consequence, gene, sig)
	}

	return text + " " + evidenceSentence(evidence) + " " + closingSentence
}

func evidenceSentence(evidence []domret.Result) string {
	if len(evidence) == 0 {
		return "No prior evidence from similar characterized variants was found."
	}
	pathogenic := 0
	for i := range evidence {
		rec := evidence[i].Record()
		if rec.IsPathogenic() {
			pathogenic++
		}
	}
	noun := "variants"
	if len(evidence) == 1 {
		noun = "variant"
	}
	return fmt.Sprintf("Of %d similar characterized %s, %d (%.0f%%) are classified as pathogenic or likely pathogenic.",
		len(evidence), noun, pathogenic, 100*float64(pathogenic)/float64(len(evidence)))
}
