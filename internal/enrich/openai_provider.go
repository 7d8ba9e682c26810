package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/applynow/internal/model"
)

func departmentNames() []string {
	names := make([]string, len(model.Departments))
	for i, d := range model.Departments {
		names[i] = string(d)
	}
	return names
}

func nullable(typ string) []string { return []string{typ, "null"} }

// enrichmentSchema is enforced server-side via OpenAI structured outputs.
// Strict mode requires every property to be listed as required; optional
// values are expressed as nullable types.
var enrichmentSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"salary_min": map[string]any{"type": nullable("integer")},
		"salary_max": map[string]any{"type": nullable("integer")},
		"work_model": map[string]any{
			"type": nullable("string"),
			"enum": []any{"remote", "on-site", "hybrid", nil},
		},
		"industry": map[string]any{"type": nullable("string")},
		"seniority": map[string]any{
			"type": nullable("string"),
			"enum": []any{"entry", "mid", "senior", "lead", nil},
		},
		"technologies": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
		"is_winnipeg": map[string]any{"type": "boolean"},
		"department": map[string]any{
			"type": "string",
			"enum": departmentNames(),
		},
		"min_experience": map[string]any{"type": nullable("integer")},
	},
	"required": []string{
		"salary_min", "salary_max", "work_model", "industry", "seniority",
		"technologies", "is_winnipeg", "department", "min_experience",
	},
}

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint and
// asks for a reply shaped by enrichmentSchema.
type OpenAIProvider struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider for the API rooted at baseURL.
func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

const (
	extractorRole    = "You are a precise structured data extractor for job postings."
	maxResponseBytes = 1 << 20
)

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema namedShape `json:"json_schema"`
}

type namedShape struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (p *OpenAIProvider) request(prompt string) chatRequest {
	return chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: extractorRole},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   512,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: namedShape{Name: "job_enrichment", Strict: true, Schema: enrichmentSchema},
		},
	}
}

// Complete returns the model's JSON reply to prompt.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(p.request(prompt))
	if err != nil {
		return "", fmt.Errorf("encoding enrichment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("enrichment request: %w", err)
	}
	defer resp.Body.Close()
	body := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		httpErr := &model.HTTPError{StatusCode: resp.StatusCode, Err: fmt.Errorf("enrichment api: %s", bytes.TrimSpace(snippet))}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return "", httpErr
	}

	var out chatResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding enrichment response: %w", err)
	}
	switch {
	case out.Error != nil:
		return "", fmt.Errorf("enrichment api %s: %s", out.Error.Type, out.Error.Message)
	case len(out.Choices) == 0:
		return "", errors.New("enrichment api returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
