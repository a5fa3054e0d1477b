// Package dataset holds the in-memory tabular representation produced by the
// file loaders. A Dataset is immutable by convention once loaded: the session
// hands it out by reference and callers must not mutate rows in place.
package dataset

import (
	"strings"

	"github.com/tablechat/tablechat/pkg/mcperr"
)

// Dataset is one loaded table. Columns preserves header order for stable
// rendering; Rows maps column name to the decoded cell value.
type Dataset struct {
	SourceName string
	Columns    []string
	Rows       []map[string]any
}

// RowCount returns the number of data rows (the header is not a row).
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnCount is derived from the key set of the first row, zero when the
// dataset has no rows. Derived rather than stored so it cannot drift from
// the row data.
func (d *Dataset) ColumnCount() int {
	if len(d.Rows) == 0 {
		return 0
	}
	return len(d.Rows[0])
}

// Preview returns the first n rows (all rows when fewer exist). The returned
// slice is fresh but the row maps are shared with the dataset.
func (d *Dataset) Preview(n int) []map[string]any {
	if n < 0 {
		n = 0
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	out := make([]map[string]any, n)
	copy(out, d.Rows[:n])
	return out
}

// supportedExts lists the accepted upload extensions in display order.
var supportedExts = []string{".csv", ".xlsx", ".xls"}

// Supported reports whether ext (with leading dot, any case) is accepted.
func Supported(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, s := range supportedExts {
		if ext == s {
			return true
		}
	}
	return false
}

// Exts returns the accepted extensions in display order.
func Exts() []string {
	out := make([]string, len(supportedExts))
	copy(out, supportedExts)
	return out
}

// ErrUnsupported builds the classified rejection for an extension outside the
// accepted set.
func ErrUnsupported(ext string) error {
	return mcperr.Newf(mcperr.UnsupportedFormat,
		"Unsupported file format: %s. Supported formats: %s", ext, strings.Join(supportedExts, ", "))
}
