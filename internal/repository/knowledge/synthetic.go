package knowledge

import (
	"fmt"

	"github.com/kailas-cloud/vexplain/internal/domain/record"
)

const syntheticVariantsPerGene = 20

var syntheticBase = []record.Record{
	{
		Gene:                 "BRCA1",
		Consequence:          "missense_variant",
		ClinicalSignificance: "Pathogenic",
		ReviewStatus:         "criteria provided, multiple submitters, no conflicts",
		Condition:            "Hereditary breast and ovarian cancer syndrome",
		Summary: "This variant in BRCA1 is associated with increased risk of breast and ovarian cancer. " +
			"Multiple studies have demonstrated pathogenicity.",
		Locus: record.Locus{Chromosome: "NC_000017.11", Position: 43104121, Ref: "A", Alt: "T"},
	},
	{
		Gene:                 "TP53",
		Consequence:          "stop_gained",
		ClinicalSignificance: "Pathogenic",
		ReviewStatus:         "reviewed by expert panel",
		Condition:            "Li-Fraumeni syndrome",
		Summary: "This nonsense variant in TP53 results in a premature stop codon and is associated " +
			"with Li-Fraumeni syndrome.",
		Locus: record.Locus{Chromosome: "NC_000017.11", Position: 7674220, Ref: "C", Alt: "T"},
	},
	{
		Gene:                 "CFTR",
		Consequence:          "frameshift_variant",
		ClinicalSignificance: "Pathogenic",
		ReviewStatus:         "criteria provided, multiple submitters, no conflicts",
		Condition:            "Cystic fibrosis",
		Summary:              "This frameshift variant in CFTR is a common cause of cystic fibrosis in European populations.",
		Locus:                record.Locus{Chromosome: "NC_000007.14", Position: 117559590, Ref: "CTT", Alt: "C"},
	},
	{
		Gene:                 "APOE",
		Consequence:          "missense_variant",
		ClinicalSignificance: "risk factor",
		ReviewStatus:         "reviewed by expert panel",
		Condition:            "Alzheimer disease",
		Summary:              "The APOE e4 allele is a major genetic risk factor for late-onset Alzheimer disease.",
		Locus:                record.Locus{Chromosome: "NC_000019.10", Position: 44908684, Ref: "T", Alt: "C"},
	},
	{
		Gene:                 "HBB",
		Consequence:          "missense_variant",
		ClinicalSignificance: "Pathogenic",
		ReviewStatus:         "criteria provided, multiple submitters, no conflicts",
		Condition:            "Sickle cell anemia",
		Summary:              "This variant causes sickle cell anemia by altering hemoglobin structure and function.",
		Locus:                record.Locus{Chromosome: "NC_000011.10", Position: 5227002, Ref: "T", Alt: "A"},
	},
}

// Synthetic returns a demonstration knowledge base: 20 variants per base
// gene with shifted positions and a rotating clinical significance.
func Synthetic() []record.Record {
	out := make([]record.Record, 0, len(syntheticBase)*syntheticVariantsPerGene)
	for i, base := range syntheticBase {
		for j := range syntheticVariantsPerGene {
			r := base
			r.ID = fmt.Sprintf("VCV%06d_%03d", i, j)
			r.Locus.Position += int64(j * 100)

			switch j % 4 {
			case 0:
				r.ClinicalSignificance = "Benign"
				r.Summary = fmt.Sprintf("This variant in %s is considered benign based on population "+
					"frequency and functional studies.", r.Gene)
			case 1:
				r.ClinicalSignificance = "Likely benign"
				r.Summary = fmt.Sprintf("This variant in %s is likely benign but requires further study.", r.Gene)
			case 2:
				r.ClinicalSignificance = "Uncertain significance"
				r.Summary = fmt.Sprintf("The clinical significance of this %s variant is currently uncertain.", r.Gene)
			}
			out = append(out, r)
		}
	}
	return out
}
