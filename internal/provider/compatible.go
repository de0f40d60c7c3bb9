package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/models"
)

const DefaultCustomModel = "gpt-3.5-turbo"

// CompatibleClient talks to any OpenAI-compatible chat completions API.
type CompatibleClient struct {
	model          string
	defaultBaseURL string
	httpClient     *http.Client
}

func NewCompatibleClient(model, defaultBaseURL string, timeout time.Duration) *CompatibleClient {
	if model == "" {
		model = DefaultCustomModel
	}
	return &CompatibleClient{
		model:          model,
		defaultBaseURL: defaultBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// SendConversation implements Provider.
func (c *CompatibleClient) SendConversation(ctx context.Context, history []models.ProviderMessage, latestUserText string, creds Credentials) string {
	if creds.APIKey == "" {
		return CustomAdvisories.MissingKey
	}
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = c.defaultBaseURL
	}
	if baseURL == "" {
		return CustomAdvisories.MissingURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	client := openai.NewClient(
		option.WithAPIKey(creds.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(c.httpClient),
	)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, m := range history {
		if m.Role == models.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(latestUserText))

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			log.Warn().Str("component", "provider").Int("status", apiErr.StatusCode).Msg("custom API returned an error status")
			return CustomAdvisories.ForStatus(apiErr.StatusCode, errorBody(apiErr))
		}
		log.Warn().Str("component", "provider").Err(err).Msg("custom API request failed")
		return CustomAdvisories.Connection
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return CustomAdvisories.NoResponse
	}
	return completion.Choices[0].Message.Content
}

// errorBody returns the raw response body of a failed call. The client puts
// the body back on the response after decoding it.
func errorBody(apiErr *openai.Error) string {
	if apiErr.Response != nil && apiErr.Response.Body != nil {
		if b, err := io.ReadAll(apiErr.Response.Body); err == nil && len(b) > 0 {
			return string(b)
		}
	}
	if raw := apiErr.RawJSON(); raw != "" {
		return raw
	}
	return http.StatusText(apiErr.StatusCode)
}
