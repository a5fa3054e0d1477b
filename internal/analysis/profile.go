package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tablechat/tablechat/internal/dataset"
)

// ColumnProfile summarizes one column for the model prompt: a coarse value
// kind plus enough texture (distinct count, empties, examples) for the model
// to reason about the data it cannot see in full.
type ColumnProfile struct {
	Name     string
	Kind     string
	Distinct int
	Missing  int
	Samples  []string
}

const maxSampleValues = 3

// profileColumns inspects up to sampleRows rows per column, in header order.
func profileColumns(ds *dataset.Dataset, sampleRows int) []ColumnProfile {
	if sampleRows <= 0 || sampleRows > ds.RowCount() {
		sampleRows = ds.RowCount()
	}

	profiles := make([]ColumnProfile, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		var (
			counter kindCounter
			seen    = map[string]struct{}{}
			samples []string
			missing int
		)
		for _, row := range ds.Rows[:sampleRows] {
			cell := strings.TrimSpace(cellString(row[col]))
			if cell == "" {
				missing++
				continue
			}
			counter.observe(cell)
			if _, dup := seen[cell]; !dup {
				seen[cell] = struct{}{}
				if len(samples) < maxSampleValues {
					samples = append(samples, cell)
				}
			}
		}
		profiles = append(profiles, ColumnProfile{
			Name:     col,
			Kind:     counter.dominant(),
			Distinct: len(seen),
			Missing:  missing,
			Samples:  samples,
		})
	}
	return profiles
}

// kindCounter tallies observed value categories for one column.
type kindCounter struct {
	numeric int
	integer int
	date    int
	boolean int
	text    int
}

var dateLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006", "2006-01-02 15:04:05",
}

func (k *kindCounter) observe(s string) {
	low := strings.ToLower(s)
	if low == "true" || low == "false" || low == "yes" || low == "no" {
		k.boolean++
		return
	}
	clean := strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		k.numeric++
		if math.Trunc(f) == f {
			k.integer++
		}
		return
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			k.date++
			return
		}
	}
	k.text++
}

// dominant picks the leading category; when a second category holds at least
// a fifth of the lead it reports mixed instead.
func (k *kindCounter) dominant() string {
	type cat struct {
		n    int
		name string
	}
	cats := []cat{
		{k.numeric, "numeric"},
		{k.date, "date"},
		{k.boolean, "boolean"},
		{k.text, "text"},
	}
	best, second := cat{}, cat{}
	for _, c := range cats {
		switch {
		case c.n > best.n:
			second = best
			best = c
		case c.n > second.n:
			second = c
		}
	}
	if best.n == 0 {
		return "unknown"
	}
	if second.n > 0 && float64(second.n) >= 0.2*float64(best.n) {
		return "mixed"
	}
	if best.name == "numeric" && k.integer == k.numeric {
		return "integer"
	}
	return best.name
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
