// Package knowledge loads reference records for index building.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vexplain/internal/domain/record"
	"github.com/kailas-cloud/vexplain/internal/repository/tabular"
)

// Loader reads records from a ClinVar-style table.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a knowledge loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads records from path. An empty or missing path yields the
// synthetic knowledge base instead.
func (l *Loader) Load(path string) ([]record.Record, error) {
	if path == "" {
		l.logger.Warn("no knowledge source configured, using synthetic records")
		return Synthetic(), nil
	}

	rows, err := tabular.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("knowledge source not found, using synthetic records", zap.String("path", path))
		return Synthetic(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}

	records := make([]record.Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, FromRow(row, i))
	}
	l.logger.Info("knowledge records loaded", zap.String("path", path), zap.Int("records", len(records)))
	return records, nil
}

// FromRow maps ClinVar column names (and snake_case spellings) onto a record.
// Rows without an id get "row_<i>".
func FromRow(row tabular.Row, i int) record.Record {
	rec := record.Record{
		ID:                   row.Get("VariationID", "variation_id", "VariationId", "ID", "id"),
		Gene:                 row.Get("Gene", "GeneSymbol", "gene"),
		Consequence:          row.Get("Consequence", "MolecularConsequence", "consequence"),
		ClinicalSignificance: row.Get("ClinicalSignificance", "Clinical_Significance", "clinical_significance"),
		Condition:            row.Get("Condition", "PhenotypeList", "condition"),
		Summary:              row.Get("Summary", "summary"),
		ReviewStatus:         row.Get("ReviewStatus", "review_status"),
		Locus: record.Locus{
			Chromosome: row.Get("ChromosomeAccession", "Chromosome", "chromosome"),
			Ref:        row.Get("ReferenceAllele", "ReferenceAlleleVCF", "ref"),
			Alt:        row.Get("AlternateAllele", "AlternateAlleleVCF", "alt"),
		},
	}
	if start := row.Get("Start", "PositionVCF", "start"); start != "" {
		if pos, err := strconv.ParseInt(start, 10, 64); err == nil {
			rec.Locus.Position = pos
		}
	}
	if rec.ID == "" {
		rec.ID = "row_" + strconv.Itoa(i)
	}
	return rec
}
