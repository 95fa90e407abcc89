package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
)

type mockGenerator struct {
	response string
	err      error

	calls      int
	system     string
	user       string
	schemaName string
	schema     map[string]any
}

func (m *mockGenerator) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	m.calls++
	m.system, m.user, m.schemaName, m.schema = system, user, schemaName, schema
	return m.response, m.err
}

func TestAnalyzerSummarize(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		expectTitle  string
		expectTopics []string
	}{
		{
			name:         "canonical topics pass through",
			response:     `{"title":"Three Focus Habits","summary":"Habits for focus.","topics":["Productivity"]}`,
			expectTitle:  "Three Focus Habits",
			expectTopics: []string{"Productivity"},
		},
		{
			name:         "aliases markers and duplicates",
			response:     `{"title":"  Why ChatGPT helps?! ","summary":"Tools.","topics":["- chatgpt","AI Tools","note taking."]}`,
			expectTitle:  "Why ChatGPT helps",
			expectTopics: []string{"AI tools", "Productivity"},
		},
		{
			name:         "unknown topics keep their wording",
			response:     `{"title":"","summary":"Gardening tips.","topics":["Urban Gardening","pricing strategy"]}`,
			expectTitle:  "",
			expectTopics: []string{"Urban Gardening", "Pricing"},
		},
		{
			name:         "clamped to three",
			response:     `{"title":"T","summary":"S","topics":["Sales","Marketing","Design","Education"]}`,
			expectTitle:  "T",
			expectTopics: []string{"Sales", "Marketing", "Design"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{response: tt.response}
			analyzer := NewAnalyzer(gen, logger.Nop())

			summary, err := analyzer.Summarize(context.Background(), "some transcript")
			require.NoError(t, err)
			assert.Equal(t, tt.expectTitle, summary.Title)
			assert.Equal(t, tt.expectTopics, summary.Topics)
			assert.NotEmpty(t, summary.Summary)
			assert.Equal(t, 1, gen.calls)
		})
	}
}

func TestAnalyzerSummarize_Request(t *testing.T) {
	gen := &mockGenerator{response: `{"title":"T","summary":"S","topics":["Sales"]}`}
	analyzer := NewAnalyzer(gen, logger.Nop())

	_, err := analyzer.Summarize(context.Background(), "  three   habits\n\nfor\tfocus  ")
	require.NoError(t, err)

	assert.Equal(t, "Transcript:\nthree habits for focus", gen.user)
	assert.Equal(t, analysisSchemaName, gen.schemaName)
	assert.Contains(t, gen.system, "- AI tools\n")
	assert.Contains(t, gen.system, "- Leadership\n")
	assert.Contains(t, gen.system, "at most 3 words")

	assert.Equal(t, false, gen.schema["additionalProperties"])
	assert.Equal(t, []string{"title", "summary", "topics"}, gen.schema["required"])
	props := gen.schema["properties"].(map[string]any)
	topicSchema := props["topics"].(map[string]any)
	assert.Equal(t, 1, topicSchema["minItems"])
	assert.Equal(t, 3, topicSchema["maxItems"])
}

func TestAnalyzerSummarize_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		message  string
	}{
		{name: "empty content", response: "", message: "analysis response was empty"},
		{name: "whitespace content", response: "  \n", message: "analysis response was empty"},
		{name: "not json", response: "Sure! Here is the analysis", message: "analysis response was not valid JSON"},
		{name: "no summary", response: `{"title":"T","summary":" ","topics":["Sales"]}`, message: "analysis response had no summary"},
		{name: "no usable topics", response: `{"title":"T","summary":"S","topics":["-", " . "]}`, message: "analysis response had no usable topics"},
		{name: "empty topics", response: `{"title":"T","summary":"S","topics":[]}`, message: "analysis response had no usable topics"},
		{name: "plain generator error", err: errors.New("connection reset"), message: "analysis request failed"},
		{name: "classified generator error", err: apperr.Upstream("no output_text found in response"), message: "no output_text found in response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(&mockGenerator{response: tt.response, err: tt.err}, logger.Nop())

			summary, err := analyzer.Summarize(context.Background(), "transcript")
			require.Error(t, err)
			assert.Nil(t, summary)
			assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestPrepareTranscript(t *testing.T) {
	assert.Equal(t, "", PrepareTranscript("   \n\t "))
	assert.Equal(t, "a b c", PrepareTranscript("a\n\nb   c "))

	long := strings.Repeat("é", MaxTranscriptRunes+50)
	prepared := PrepareTranscript(long)
	assert.Equal(t, MaxTranscriptRunes, utf8.RuneCountInString(prepared))
	assert.True(t, utf8.ValidString(prepared))

	exact := strings.Repeat("a", MaxTranscriptRunes)
	assert.Equal(t, exact, PrepareTranscript(exact))
}
