package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/models"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-1.5-flash"
)

type geminiPart struct {
	Text *string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content *geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

// GeminiClient calls the generateContent method of the Gemini API.
type GeminiClient struct {
	baseURL    string
	model      string
	defaultKey string // Server-side key used when the request carries none
	httpClient *http.Client
}

// NewGeminiClient creates a client. A zero timeout keeps the transport default.
func NewGeminiClient(baseURL, model, defaultKey string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		defaultKey: defaultKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func geminiRole(r models.Role) string {
	if r == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func textPart(s string) []geminiPart {
	return []geminiPart{{Text: &s}}
}

// SendConversation implements Provider.
func (c *GeminiClient) SendConversation(ctx context.Context, history []models.ProviderMessage, latestUserText string, creds Credentials) string {
	key := creds.APIKey
	if key == "" {
		key = c.defaultKey
	}
	if key == "" {
		return GeminiAdvisories.MissingKey
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, geminiContent{Role: geminiRole(m.Role), Parts: textPart(m.Content)})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: textPart(latestUserText)})

	body, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		log.Error().Str("component", "provider").Err(err).Msg("failed to marshal gemini request")
		return GeminiAdvisories.Connection
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		log.Error().Str("component", "provider").Err(redact(err)).Msg("failed to create gemini request")
		return GeminiAdvisories.Connection
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Str("component", "provider").Err(redact(err)).Msg("gemini request failed")
		return GeminiAdvisories.Connection
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Str("component", "provider").Err(err).Msg("failed to read gemini response")
		return GeminiAdvisories.Connection
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Str("component", "provider").Int("status", resp.StatusCode).Msg("gemini returned an error status")
		return GeminiAdvisories.ForStatus(resp.StatusCode, string(respBody))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		log.Warn().Str("component", "provider").Err(err).Msg("failed to parse gemini response")
		return GeminiAdvisories.Connection
	}

	if len(parsed.Candidates) == 0 || parsed.Candidates[0].Content == nil ||
		len(parsed.Candidates[0].Content.Parts) == 0 || parsed.Candidates[0].Content.Parts[0].Text == nil {
		return GeminiAdvisories.NoResponse
	}
	return *parsed.Candidates[0].Content.Parts[0].Text
}

// redact strips the request URL (which carries the API key) from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s gemini: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
