package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kdimtricp/instasave/internal/logger"
)

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(analysisSchema())

	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"title", "summary", "topics"}, s.Required)
	assert.Equal(t, []string{"title", "summary", "topics"}, s.PropertyOrdering)
	require.Len(t, s.Properties, 3)

	assert.Equal(t, genai.TypeString, s.Properties["title"].Type)
	assert.NotEmpty(t, s.Properties["summary"].Description)

	topicsSchema := s.Properties["topics"]
	assert.Equal(t, genai.TypeArray, topicsSchema.Type)
	require.NotNil(t, topicsSchema.Items)
	assert.Equal(t, genai.TypeString, topicsSchema.Items.Type)
	require.NotNil(t, topicsSchema.MinItems)
	require.NotNil(t, topicsSchema.MaxItems)
	assert.Equal(t, int64(1), *topicsSchema.MinItems)
	assert.Equal(t, int64(3), *topicsSchema.MaxItems)

	assert.Nil(t, toGenaiSchema(nil))
}

func TestGeminiClient_GenerateJSON(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": `{"title":"T","summary":"S","topics":["Sales"]}`}},
				},
			}},
		})
	}))
	defer srv.Close()

	cfg := NewConfig()
	cfg.GeminiAPIKey = "test-key"
	g, err := newGeminiClient(context.Background(), cfg, &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	}, logger.Nop())
	require.NoError(t, err)

	out, err := g.GenerateJSON(context.Background(), "sys", "Transcript:\nhello", analysisSchemaName, analysisSchema())
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"T","summary":"S","topics":["Sales"]}`, out)

	assert.Contains(t, body, "application/json")
	assert.Contains(t, body, "Transcript:")
}

func TestGeminiClient_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	cfg := NewConfig()
	g, err := newGeminiClient(context.Background(), cfg, &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	}, logger.Nop())
	require.NoError(t, err)

	_, err = g.GenerateJSON(context.Background(), "sys", "user", analysisSchemaName, analysisSchema())
	assert.Error(t, err)
}
