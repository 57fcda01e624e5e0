package explain

import (
	"fmt"
	"strconv"
	"strings"

	domret "github.com/kailas-cloud/vexplain/internal/domain/retrieval"
	"github.com/kailas-cloud/vexplain/internal/domain/variant"
)

const (
	promptEvidenceLimit = 3
	summaryLimit        = 200
)

var consequenceDescriptions = map[string]string{
	"stop_gained":               "a premature stop codon that truncates the protein, usually resulting in loss of function",
	"frameshift_variant":        "a shift in the reading frame that alters all downstream amino acids, typically causing loss of function",
	"missense_variant":          "a change in one amino acid that may or may not affect protein function depending on the specific change",
	"splice_acceptor_variant":   "disruption of normal RNA splicing that may lead to abnormal protein production",
	"splice_donor_variant":      "disruption of normal RNA splicing that may lead to abnormal protein production",
	"synonymous_variant":        "a change that does not alter the amino acid sequence, usually having minimal functional impact",
	"inframe_deletion":          "removal of amino acids without shifting the reading frame, with variable functional impact",
	"inframe_insertion":         "addition of amino acids without shifting the reading frame, with variable functional impact",
	"start_lost":                "loss of the start codon that prevents normal protein production",
	"stop_lost":                 "loss of the stop codon that may result in an extended protein with altered function",
	"transcript_ablation":       "complete loss of the transcript, resulting in absence of the protein",
	"regulatory_region_variant": "a change in regulatory sequences that may affect gene expression levels",
	"intron_variant":            "a change within an intron that typically has minimal direct effect on protein function",
	"upstream_gene_variant":     "a change upstream of the gene that may affect gene regulation",
	"downstream_gene_variant":   "a change downstream of the gene that may affect gene regulation",
	"3_prime_utr_variant":       "a change in the 3' untranslated region that may affect mRNA stability or translation",
	"5_prime_utr_variant":       "a change in the 5' untranslated region that may affect translation initiation",
}

// keyed by lowercase significance
var significanceContexts = map[string]string{
	"pathogenic":                  "This variant is established as disease-causing with strong evidence from multiple sources.",
	"likely pathogenic":           "This variant is very likely to be disease-causing based on available evidence.",
	"uncertain significance":      "The clinical significance of this variant is currently unclear and requires further study.",
	"likely benign":               "This variant is probably not disease-causing based on current evidence.",
	"benign":                      "This variant is established as not disease-causing.",
	"risk factor":                 "This variant increases disease risk but is not directly causative.",
	"drug response":               "This variant affects response to specific medications.",
	"protective":                  "This variant may provide protection against certain conditions.",
	"conflicting interpretations": "Different sources provide conflicting assessments of this variant's significance.",
}

const promptTemplate = `You are a clinical genetics expert providing educational information about genetic variants.
Your task is to explain a genetic variant in clear, accessible language while maintaining scientific accuracy.

VARIANT INFORMATION:
%s

SIMILAR VARIANTS FROM DATABASE:
%s

INSTRUCTIONS:
1. Provide a clear explanation of at most 150 words of this variant's potential significance
2. Explain what the %s means in simple terms
3. Discuss the potential impact on the %s gene function
4. Reference similar variants when relevant
5. Include appropriate caveats about interpretation limitations
6. Use accessible language while maintaining scientific accuracy

IMPORTANT DISCLAIMERS TO INCLUDE:
- This is for research/educational purposes only
- Clinical interpretation requires professional evaluation
- Variant significance may change with new evidence

Please provide a concise, informative explanation:`

// BuildPrompt renders the generator prompt for v and its evidence.
func BuildPrompt(v variant.Variant, evidence []domret.Result) string {
	return fmt.Sprintf(promptTemplate,
		VariantContext(v),
		EvidenceContext(evidence),
		orDefault(v.Get(variant.Consequence), "Unknown"),
		orDefault(v.Get(variant.Gene), "Unknown"),
	)
}

// VariantContext describes the query variant one fact per line.
func VariantContext(v variant.Variant) string {
	var lines []string
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	add("Variant ID", v.ID())
	add("Gene", v.Get(variant.Gene))
	add("Position", v.Get(variant.GenomicPosition))

	if c := v.Get(variant.Consequence); c != "" {
		add("Consequence", c)
		add("Consequence meaning", consequenceDescriptions[strings.ToLower(c)])
	}
	if sig := v.Get(variant.ClinicalSignificance); sig != "" {
		add("Clinical significance", sig)
		add("Significance meaning", significanceContexts[strings.ToLower(sig)])
	}

	add("Protein position", v.Get(variant.ProteinPosition))
	add("Amino acid change", v.Get(variant.AminoAcids))
	if v.Has(variant.PopulationFrequency) {
		add("Population frequency", formatFrequency(v))
	}
	add("Impact level", v.Get(variant.Impact))
	if id := v.Get(variant.DbSNPID); id != "." {
		add("dbSNP ID", id)
	}
	add("ClinVar ID", v.Get(variant.ClinVarID))
	add("Associated conditions", v.Get(variant.ClinVarConditions))

	return strings.Join(lines, "\n")
}

func formatFrequency(v variant.Variant) string {
	freq, ok := v.Float(variant.PopulationFrequency)
	if !ok || freq <= 0 {
		return "Not found in gnomAD"
	}
	return strconv.FormatFloat(freq, 'f', 6, 64) + " (" + strconv.FormatFloat(freq*100, 'f', 4, 64) + "%)"
}

// EvidenceContext summarizes up to three evidence records.
func EvidenceContext(evidence []domret.Result) string {
	if len(evidence) == 0 {
		return "No similar variants found in database."
	}

	n := min(len(evidence), promptEvidenceLimit)
	parts := make([]string, 0, n)
	for i := range n {
		rec := evidence[i].Record()
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s variant", i+1, orDefault(rec.Gene, "Unknown gene"))
		if rec.ClinicalSignificance != "" {
			b.WriteString(" - " + rec.ClinicalSignificance)
		}
		if rec.Condition != "" {
			b.WriteString(" (associated with " + rec.Condition + ")")
		}
		if rec.Summary != "" {
			b.WriteString(": " + truncate(rec.Summary, summaryLimit))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// truncate cuts s to limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
