// Package tabular reads delimited text and parquet tables into string rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Row maps column name to cell text. Missing and null cells are absent.
type Row map[string]string

// Get returns the first non-empty value among the given column names.
func (r Row) Get(columns ...string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return ""
}

// Read loads every row of a .tsv/.txt (tab), .csv or .parquet file.
// A missing file yields an error wrapping fs.ErrNotExist.
func Read(path string) ([]Row, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tsv", ".txt":
		return readDelimited(path, '\t')
	case ".csv":
		return readDelimited(path, ',')
	case ".parquet":
		return readParquet(path)
	default:
		return nil, domain.NewConfigurationError("path",
			fmt.Sprintf("unsupported table format %q for %s (want .tsv, .txt, .csv or .parquet)", ext, path))
	}
}

func readDelimited(path string, sep rune) ([]Row, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var header []string
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		// VEP meta lines
		if len(rec) > 0 && strings.HasPrefix(rec[0], "##") {
			continue
		}
		if header == nil {
			header = make([]string, len(rec))
			for i, h := range rec {
				header[i] = strings.TrimSpace(strings.TrimPrefix(h, "#"))
			}
			continue
		}
		row := make(Row, len(header))
		for i, v := range rec {
			if i < len(header) && v != "" {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readParquet(path string) ([]Row, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", filepath.Base(path), err)
	}

	cols := pf.Schema().Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strings.Join(c, ".")
	}

	rows := make([]Row, 0, pf.NumRows())
	buf := make([]parquet.Row, 512)
	for _, rg := range pf.RowGroups() {
		rr := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rr.ReadRows(buf)
			for i := range n {
				row := make(Row, len(names))
				for _, v := range buf[i] {
					if v.IsNull() {
						continue
					}
					if c := v.Column(); c >= 0 && c < len(names) {
						row[names[c]] = v.String()
					}
				}
				rows = append(rows, row)
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read parquet rows: %w", readErr)
			}
		}
	}
	return rows, nil
}
