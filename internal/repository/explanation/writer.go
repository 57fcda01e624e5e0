// Package explanation exports explanations and retrieval summaries to disk.
package explanation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	domexp "github.com/kailas-cloud/vexplain/internal/domain/explanation"
)

// Output file names.
const (
	JSONFile    = "variant_explanations.json"
	TSVFile     = "variant_explanations.tsv"
	SummaryFile = "retrieval_summary.json"
)

var tsvHeader = []string{
	"Variant_ID", "Gene", "Consequence", "Clinical_Significance", "Explanation",
	"Confidence_Score", "Evidence_Count", "Similar_Variants", "Generator",
}

// Writer writes export files into one directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteExplanations writes the JSON and TSV exports. Both keep input order.
func (w *Writer) WriteExplanations(exps []domexp.Explanation) error {
	if exps == nil {
		exps = []domexp.Explanation{}
	}
	if err := w.writeJSON(JSONFile, exps); err != nil {
		return err
	}
	return w.writeTSV(exps)
}

// WriteSummary writes any JSON-serializable retrieval summary.
func (w *Writer) WriteSummary(summary any) error {
	return w.writeJSON(SummaryFile, summary)
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, name), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (w *Writer) writeTSV(exps []domexp.Explanation) error {
	f, err := os.Create(filepath.Join(w.dir, TSVFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", TSVFile, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	cw.Comma = '\t'
	if err := cw.Write(tsvHeader); err != nil {
		return fmt.Errorf("write tsv header: %w", err)
	}
	for i := range exps {
		e := &exps[i]
		row := []string{
			e.VariantID,
			e.Gene,
			e.Consequence,
			e.ClinicalSignificance,
			flatten(e.Text),
			strconv.FormatFloat(e.ConfidenceScore, 'f', 4, 64),
			strconv.Itoa(e.EvidenceCount),
			strings.Join(e.CitedRecordIDs, "; "),
			string(e.GeneratorUsed),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write tsv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush tsv: %w", err)
	}
	return f.Close()
}

// flatten keeps one explanation per TSV line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
