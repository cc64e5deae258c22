// services/gemini_client.go - Google Gemini text generation client
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultGeminiModel = "gemini-2.5-flash-lite"
	geminiEndpoint     = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"
)

// Generator produces a JSON artifact from a prompt. Implemented by
// GeminiClient in production and by fakes in tests.
type Generator interface {
	Generate(ctx context.Context, prompt, systemInstructions string) (json.RawMessage, error)
}

type GeminiClient struct {
	apiKey string
	model  string
	client *http.Client
}

func NewGeminiClient() (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not configured")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	TopK             int     `json:"topK"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate calls the model and returns the raw JSON artifact it produced.
// Quota exhaustion surfaces as ErrQuotaExceeded so handlers can report 429
// instead of a generic failure.
func (c *GeminiClient) Generate(ctx context.Context, prompt, systemInstructions string) (json.RawMessage, error) {
	text := prompt
	if systemInstructions != "" {
		text = systemInstructions + "\n\n" + prompt
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiGenConfig{
			Temperature:      0.7,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf(geminiEndpoint, c.model) + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		if isQuotaError(resp.StatusCode, string(raw)) {
			return nil, fmt.Errorf("%w: AI service quota exceeded, try again later", ErrQuotaExceeded)
		}
		return nil, fmt.Errorf("%w: gemini returned status %d", ErrGenerationFailed, resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no response from model", ErrGenerationFailed)
	}

	artifact := stripCodeFences(parsed.Candidates[0].Content.Parts[0].Text)
	if !json.Valid([]byte(artifact)) {
		return nil, fmt.Errorf("%w: model returned malformed JSON", ErrGenerationFailed)
	}
	return json.RawMessage(artifact), nil
}

// isQuotaError classifies a failed call as quota exhaustion. The API does
// not always use 429 for it, so the body markers count too.
func isQuotaError(status int, body string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(body, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(body), "quota")
}

// UnavailableGenerator stands in when no API key is configured. Every
// call fails; the rest of the API keeps working.
type UnavailableGenerator struct{}

func (UnavailableGenerator) Generate(ctx context.Context, prompt, systemInstructions string) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: AI generation is not configured", ErrGenerationFailed)
}

// stripCodeFences removes a markdown ```json ... ``` wrapper some model
// responses arrive in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
