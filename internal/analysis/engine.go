// Package analysis answers natural-language questions about the loaded
// dataset by rendering a bounded table sample into a prompt and sending it
// through the configured backend model.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"github.com/tablechat/tablechat/config"
	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/dataset"
	"github.com/tablechat/tablechat/pkg/mcperr"
)

// Engine is the analysis collaborator. It holds no session state; dataset
// and backend arrive per call.
type Engine struct {
	logger     zerolog.Logger
	sampleRows int
}

// NewEngine builds an Engine that renders at most sampleRows rows into each
// prompt.
func NewEngine(logger zerolog.Logger, sampleRows int) *Engine {
	if sampleRows <= 0 {
		sampleRows = config.DefaultPromptSampleRows
	}
	return &Engine{
		logger:     logger.With().Str("component", "analysis").Logger(),
		sampleRows: sampleRows,
	}
}

// Analyze sends the question with the dataset context through the handle's
// model and returns the trimmed answer text. Failures come back classified
// as AnalysisFailed. The call has no timeout of its own; a hung model call
// hangs the request.
func (e *Engine) Analyze(ctx context.Context, ds *dataset.Dataset, query string, h *backend.Handle) (string, error) {
	prompt := BuildPrompt(ds, query, e.sampleRows)

	var opts []llms.CallOption
	if t := h.Temperature(); t != nil {
		opts = append(opts, llms.WithTemperature(*t))
	}

	e.logger.Debug().
		Str("model", h.Label()).
		Int("prompt_chars", len(prompt)).
		Int("rows", ds.RowCount()).
		Msg("running analysis")

	answer, err := llms.GenerateFromSinglePrompt(ctx, h.Model(), prompt, opts...)
	if err != nil {
		return "", mcperr.Wrap(mcperr.AnalysisFailed, err)
	}
	return strings.TrimSpace(answer), nil
}

// BuildPrompt renders the dataset summary, a column profile, a bounded row
// sample in header order, and the question into one prompt.
func BuildPrompt(ds *dataset.Dataset, query string, sampleRows int) string {
	if sampleRows <= 0 {
		sampleRows = config.DefaultPromptSampleRows
	}
	shown := sampleRows
	if shown > ds.RowCount() {
		shown = ds.RowCount()
	}

	var b strings.Builder
	b.WriteString("You are a data analyst. Answer the question using only the table below.\n\n")
	fmt.Fprintf(&b, "Dataset: %s (%d rows, %d columns)\n\n", ds.SourceName, ds.RowCount(), ds.ColumnCount())

	if len(ds.Columns) > 0 {
		b.WriteString("Columns:\n")
		for _, p := range profileColumns(ds, shown) {
			fmt.Fprintf(&b, "- %s: %s", p.Name, p.Kind)
			if p.Distinct > 0 {
				fmt.Fprintf(&b, ", %d distinct", p.Distinct)
			}
			if p.Missing > 0 {
				fmt.Fprintf(&b, ", %d empty", p.Missing)
			}
			if len(p.Samples) > 0 {
				fmt.Fprintf(&b, " (e.g. %s)", strings.Join(p.Samples, ", "))
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if shown > 0 {
		fmt.Fprintf(&b, "Data (first %d of %d rows):\n", shown, ds.RowCount())
		b.WriteString(strings.Join(ds.Columns, " | "))
		b.WriteByte('\n')
		for _, row := range ds.Rows[:shown] {
			cells := make([]string, len(ds.Columns))
			for i, col := range ds.Columns {
				cells[i] = cellString(row[col])
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteByte('\n')
		}
		if remaining := ds.RowCount() - shown; remaining > 0 {
			fmt.Fprintf(&b, "(%d more rows not shown)\n", remaining)
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Answer concisely from the data shown. If the visible sample is not enough to be certain, say so.")
	return b.String()
}
