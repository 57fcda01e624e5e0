package index

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/vexplain/internal/domain"
	"github.com/kailas-cloud/vexplain/internal/domain/record"
)

// metadataRow is the parquet schema of the metadata table.
// Position is stored explicitly so row order can be verified on load.
type metadataRow struct {
	Position             int64  `parquet:"position"`
	VariationID          string `parquet:"variation_id"`
	Gene                 string `parquet:"gene"`
	Consequence          string `parquet:"consequence"`
	ClinicalSignificance string `parquet:"clinical_significance"`
	Condition            string `parquet:"condition"`
	Summary              string `parquet:"summary"`
	ReviewStatus         string `parquet:"review_status"`
	Chromosome           string `parquet:"chromosome"`
	Start                int64  `parquet:"start"`
	Ref                  string `parquet:"ref"`
	Alt                  string `parquet:"alt"`
}

func toRow(i int, r *record.Record) metadataRow {
	return metadataRow{
		Position:             int64(i),
		VariationID:          r.ID,
		Gene:                 r.Gene,
		Consequence:          r.Consequence,
		ClinicalSignificance: r.ClinicalSignificance,
		Condition:            r.Condition,
		Summary:              r.Summary,
		ReviewStatus:         r.ReviewStatus,
		Chromosome:           r.Locus.Chromosome,
		Start:                r.Locus.Position,
		Ref:                  r.Locus.Ref,
		Alt:                  r.Locus.Alt,
	}
}

func (m *metadataRow) record() record.Record {
	return record.Record{
		ID:                   m.VariationID,
		Gene:                 m.Gene,
		Consequence:          m.Consequence,
		ClinicalSignificance: m.ClinicalSignificance,
		Condition:            m.Condition,
		Summary:              m.Summary,
		ReviewStatus:         m.ReviewStatus,
		Locus: record.Locus{
			Chromosome: m.Chromosome,
			Position:   m.Start,
			Ref:        m.Ref,
			Alt:        m.Alt,
		},
	}
}

// WriteMetadata writes records as a parquet table, one row per index position.
func WriteMetadata(w io.Writer, records []record.Record) error {
	rows := make([]metadataRow, len(records))
	for i := range records {
		rows[i] = toRow(i, &records[i])
	}

	pw := parquet.NewGenericWriter[metadataRow](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("write metadata rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close metadata writer: %w", err)
	}
	return nil
}

// ReadMetadata reads a metadata table written by WriteMetadata.
// Rows must carry positions 0..n-1 in order.
func ReadMetadata(f *os.File) ([]record.Record, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat metadata: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, domain.NewCorruptIndex("metadata is not a parquet file: %v", err)
	}
	if _, ok := pf.Schema().Lookup("position"); !ok {
		return nil, domain.NewCorruptIndex("metadata has no position column")
	}
	pr := parquet.NewGenericReader[metadataRow](pf)
	defer pr.Close()

	total := pr.NumRows()
	records := make([]record.Record, 0, total)
	buf := make([]metadataRow, 256)
	for {
		n, err := pr.Read(buf)
		for i := range n {
			if buf[i].Position != int64(len(records)) {
				return nil, domain.NewCorruptIndex("metadata row %d has position %d",
					len(records), buf[i].Position)
			}
			records = append(records, buf[i].record())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.NewCorruptIndex("read metadata: %v", err)
		}
		if n == 0 {
			break
		}
	}
	if int64(len(records)) != total {
		return nil, domain.NewCorruptIndex("metadata declares %d rows, read %d", total, len(records))
	}
	return records, nil
}
