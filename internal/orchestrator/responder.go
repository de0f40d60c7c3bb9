package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"convobot-backend/internal/models"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/settings"
)

// Responder produces the bot reply for latest given the prior history.
// A returned error makes the session fall back to demo mode.
type Responder interface {
	Respond(ctx context.Context, history []models.ProviderMessage, latest string) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, history []models.ProviderMessage, latest string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, history []models.ProviderMessage, latest string) (string, error) {
	return f(ctx, history, latest)
}

// SettingsLoader is the part of settings.Manager a DirectResponder needs.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// DirectResponder calls the provider selected by the current settings.
type DirectResponder struct {
	settings  SettingsLoader
	providers *provider.Registry
}

func NewDirectResponder(s SettingsLoader, providers *provider.Registry) *DirectResponder {
	return &DirectResponder{settings: s, providers: providers}
}

func (r *DirectResponder) Respond(ctx context.Context, history []models.ProviderMessage, latest string) (string, error) {
	cfg, err := r.settings.Load(ctx)
	if err != nil {
		return "", err
	}
	p, err := r.providers.Get(cfg.Endpoint())
	if err != nil {
		return "", err
	}
	return p.SendConversation(ctx, history, latest, cfg.Credentials()), nil
}

var ErrInvalidProxyResponse = errors.New("invalid API response format")

// ProxyResponder posts the conversation to a chat proxy endpoint. The proxy
// supplies credentials; the request carries none.
type ProxyResponder struct {
	url        string
	endpoint   provider.Endpoint
	httpClient *http.Client
}

func NewProxyResponder(url string, endpoint provider.Endpoint, timeout time.Duration) *ProxyResponder {
	return &ProxyResponder{url: url, endpoint: endpoint, httpClient: &http.Client{Timeout: timeout}}
}

func (r *ProxyResponder) Respond(ctx context.Context, history []models.ProviderMessage, latest string) (string, error) {
	messages := make([]models.ProviderMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, models.ProviderMessage{Role: models.RoleUser, Content: latest})

	body, err := json.Marshal(models.ProxyRequest{Messages: messages, APIKey: "", APIEndpoint: string(r.endpoint)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	var out struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidProxyResponse, err)
	}
	switch {
	case out.Response != "":
		return out.Response, nil
	case out.Error != "":
		return "", fmt.Errorf("proxy returned error: %s", out.Error)
	default:
		return "", ErrInvalidProxyResponse
	}
}
