package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kdimtricp/instasave/internal/apperr"
	"github.com/kdimtricp/instasave/internal/logger"
)

type OpenAIClient struct {
	apiKey             string
	baseURL            string
	transcriptionModel string
	analysisModel      string
	transcribeTimeout  time.Duration
	analyzeTimeout     time.Duration
	maxRetries         int
	initialBackoff     time.Duration
	httpClient         *http.Client
	log                *logger.Logger
}

func NewOpenAIClient(cfg *Config, log *logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:             cfg.OpenAIAPIKey,
		baseURL:            strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		transcriptionModel: cfg.TranscriptionModel,
		analysisModel:      cfg.AnalysisModel,
		transcribeTimeout:  cfg.TranscribeTimeout,
		analyzeTimeout:     cfg.AnalyzeTimeout,
		maxRetries:         cfg.MaxRetries,
		initialBackoff:     500 * time.Millisecond,
		httpClient:         &http.Client{},
		log:                log.Component("openai"),
	}
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("OpenAI API error: status %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type translationResponse struct {
	Text string `json:"text"`
}

// Transcribe sends the whole file to the translations endpoint, which
// returns English text whatever the spoken language.
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.transcribeTimeout)
	defer cancel()

	var resp translationResponse
	if err := c.doWithRetry(ctx, "/v1/audio/translations", buf.Bytes(), writer.FormDataContentType(), &resp); err != nil {
		return "", apperr.Upstream("transcription request failed").WithCause(err)
	}
	return resp.Text, nil
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

func extractOutputText(resp responsesResponse) (text, refusal string) {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			switch {
			case c.Type == "output_text" && c.Text != "":
				out.WriteString(c.Text)
			case c.Type == "refusal" && c.Refusal != "":
				refusal = c.Refusal
			}
		}
	}
	return out.String(), refusal
}

// GenerateJSON requests a strict json_schema response. Empty output is not
// retried.
func (c *OpenAIClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (string, error) {
	req := responsesRequest{
		Model: c.analysisModel,
		Input: []inputMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	var resp responsesResponse
	if err := c.doWithRetry(ctx, "/v1/responses", body, "application/json", &resp); err != nil {
		return "", apperr.Upstream("analysis request failed").WithCause(err)
	}

	text, refusal := extractOutputText(resp)
	if refusal != "" {
		return "", apperr.Upstreamf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return "", apperr.Upstream("no output_text found in response")
	}
	return text, nil
}

func (c *OpenAIClient) doWithRetry(ctx context.Context, path string, body []byte, contentType string, out any) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := c.doOnce(ctx, path, body, contentType, out)
		if err == nil {
			return nil
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		var httpErr *openAIHTTPError
		if errors.As(err, &httpErr) && !httpErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}

		c.log.WithError(err).WithField("path", path).WithField("attempt", attempt).Warn("OpenAI request failed, retrying")
		return err
	}

	var b backoff.BackOff = bo
	if c.maxRetries >= 0 {
		b = backoff.WithMaxRetries(bo, uint64(c.maxRetries))
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		c.log.WithError(err).WithField("path", path).WithField("attempts", attempt).Error("OpenAI request failed")
		return err
	}
	return nil
}

func (c *OpenAIClient) doOnce(ctx context.Context, path string, body []byte, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
