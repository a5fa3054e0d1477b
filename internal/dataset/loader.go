package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tablechat/tablechat/pkg/mcperr"
)

// Load reads the file at path into a Dataset, dispatching on the path's
// extension. name becomes the dataset's display name, which matters because
// uploads are staged under generated filenames. Errors come back classified:
// UnsupportedFormat from the gate, LoadFailed from the decoders.
//
// A .xls file passes the extension gate but excelize cannot decode the legacy
// binary container, so loading it surfaces the decoder's error.
func Load(path, name string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		ds  *Dataset
		err error
	)
	switch ext {
	case ".csv":
		ds, err = loadCSV(path, name)
	case ".xlsx", ".xls":
		ds, err = loadExcel(path, name)
	default:
		return nil, ErrUnsupported(ext)
	}
	if err != nil {
		return nil, mcperr.Wrap(mcperr.LoadFailed, err)
	}
	return ds, nil
}

func loadCSV(path, name string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows; the header fixes the column set

	header, err := r.Read()
	if err == io.EOF {
		return &Dataset{SourceName: name}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = strings.TrimSpace(c)
	}

	var rows []map[string]any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, recordToRow(columns, record))
	}
	return &Dataset{SourceName: name, Columns: columns, Rows: rows}, nil
}

func loadExcel(path, name string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Dataset{SourceName: name}, nil
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("dataset: read sheet %q: %w", sheets[0], err)
	}
	if len(grid) == 0 {
		return &Dataset{SourceName: name}, nil
	}

	columns := make([]string, len(grid[0]))
	for i, c := range grid[0] {
		columns[i] = strings.TrimSpace(c)
	}

	rows := make([]map[string]any, 0, len(grid)-1)
	for _, record := range grid[1:] {
		rows = append(rows, recordToRow(columns, record))
	}
	return &Dataset{SourceName: name, Columns: columns, Rows: rows}, nil
}

// recordToRow maps one record onto the header's column set. Missing trailing
// cells become empty strings; cells beyond the header are dropped.
func recordToRow(columns []string, record []string) map[string]any {
	row := make(map[string]any, len(columns))
	for i, col := range columns {
		if i < len(record) {
			row[col] = record[i]
		} else {
			row[col] = ""
		}
	}
	return row
}
