package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/tablechat/tablechat/internal/backend"
	"github.com/tablechat/tablechat/internal/dataset"
	"github.com/tablechat/tablechat/pkg/mcperr"
)

// fakeModel records the prompt and call options it receives.
type fakeModel struct {
	answer string
	err    error

	prompt      string
	temperature float64
	calls       int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				f.prompt = tc.Text
			}
		}
	}
	var o llms.CallOptions
	for _, opt := range options {
		opt(&o)
	}
	f.temperature = o.Temperature
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.answer, f.err
}

func peopleDataset() *dataset.Dataset {
	return &dataset.Dataset{
		SourceName: "people.csv",
		Columns:    []string{"name", "age"},
		Rows: []map[string]any{
			{"name": "Alice", "age": "30"},
			{"name": "Bob", "age": "25"},
			{"name": "Carol", "age": "41"},
		},
	}
}

func TestAnalyze_ReturnsTrimmedModelText(t *testing.T) {
	fake := &fakeModel{answer: "  There are 3 rows.\n"}
	h := backend.NewHandle(fake, "openai", "gpt-4o")
	e := NewEngine(zerolog.Nop(), 50)

	answer, err := e.Analyze(context.Background(), peopleDataset(), "count rows", h)
	require.NoError(t, err)
	assert.Equal(t, "There are 3 rows.", answer)
	assert.Equal(t, 1, fake.calls)

	assert.Contains(t, fake.prompt, "people.csv")
	assert.Contains(t, fake.prompt, "count rows")
	assert.Contains(t, fake.prompt, "name | age")
	assert.Contains(t, fake.prompt, "Alice | 30")
}

func TestAnalyze_WrapsModelFailure(t *testing.T) {
	fake := &fakeModel{err: errors.New("upstream exploded")}
	h := backend.NewHandle(fake, "openai", "gpt-4o")
	e := NewEngine(zerolog.Nop(), 50)

	_, err := e.Analyze(context.Background(), peopleDataset(), "count rows", h)
	require.Error(t, err)
	assert.Equal(t, "Analysis failed: upstream exploded", err.Error())
	assert.Equal(t, mcperr.AnalysisFailed, mcperr.CodeOf(err))
}

func TestAnalyze_AppliesTemperature(t *testing.T) {
	fake := &fakeModel{answer: "ok"}
	h := backend.NewHandle(fake, "ollama", "llama3").WithTemperature(0.3)
	e := NewEngine(zerolog.Nop(), 50)

	_, err := e.Analyze(context.Background(), peopleDataset(), "anything", h)
	require.NoError(t, err)
	assert.Equal(t, 0.3, fake.temperature)
}

func TestBuildPrompt_BoundsSample(t *testing.T) {
	ds := peopleDataset()
	prompt := BuildPrompt(ds, "oldest person?", 2)

	assert.Contains(t, prompt, "Dataset: people.csv (3 rows, 2 columns)")
	assert.Contains(t, prompt, "first 2 of 3 rows")
	assert.Contains(t, prompt, "Bob | 25")
	assert.NotContains(t, prompt, "Carol | 41")
	assert.Contains(t, prompt, "more rows not shown")
	assert.Contains(t, prompt, "Question: oldest person?")
}

func TestBuildPrompt_EmptyDataset(t *testing.T) {
	ds := &dataset.Dataset{SourceName: "empty.csv"}
	prompt := BuildPrompt(ds, "anything there?", 10)

	assert.Contains(t, prompt, "empty.csv (0 rows, 0 columns)")
	assert.NotContains(t, prompt, "Data (first")
	assert.Contains(t, prompt, "Question: anything there?")
}

func TestProfileColumns_InfersKinds(t *testing.T) {
	ds := &dataset.Dataset{
		SourceName: "mixed.csv",
		Columns:    []string{"id", "price", "joined", "active", "note"},
		Rows: []map[string]any{
			{"id": "1", "price": "9.99", "joined": "2024-01-02", "active": "true", "note": "hello"},
			{"id": "2", "price": "12.50", "joined": "2024-02-03", "active": "false", "note": "12"},
			{"id": "3", "price": "3.00", "joined": "2024-03-04", "active": "yes", "note": ""},
		},
	}

	profiles := profileColumns(ds, 0)
	require.Len(t, profiles, 5)

	byName := map[string]ColumnProfile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}

	assert.Equal(t, "integer", byName["id"].Kind)
	assert.Equal(t, "numeric", byName["price"].Kind)
	assert.Equal(t, "date", byName["joined"].Kind)
	assert.Equal(t, "boolean", byName["active"].Kind)
	assert.Equal(t, "mixed", byName["note"].Kind)

	assert.Equal(t, 3, byName["id"].Distinct)
	assert.Equal(t, 1, byName["note"].Missing)
	assert.LessOrEqual(t, len(byName["id"].Samples), 3)
}
