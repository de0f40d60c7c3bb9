// Package provider talks to the external generative-language APIs.
//
// Providers never return errors to their callers: every failure is mapped to a
// fixed, user-facing advisory string that is shown as the bot reply.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/models"
)

// Endpoint names a backend the widget can talk to.
type Endpoint string

const (
	EndpointGemini Endpoint = "gemini"
	EndpointGoogle Endpoint = "google" // Settings spelling of EndpointGemini
	EndpointDemo   Endpoint = "demo"
	EndpointCustom Endpoint = "custom" // OpenAI-compatible API at Settings.CustomURL
)

var ErrInvalidEndpoint = errors.New("invalid API endpoint")

// ParseEndpoint validates s. The empty string selects Gemini.
func ParseEndpoint(s string) (Endpoint, error) {
	switch e := Endpoint(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EndpointGemini, nil
	case EndpointGemini, EndpointGoogle, EndpointDemo, EndpointCustom:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEndpoint, s)
	}
}

// Canonical folds aliases (google -> gemini).
func (e Endpoint) Canonical() Endpoint {
	if e == EndpointGoogle || e == "" {
		return EndpointGemini
	}
	return e
}

// Credentials are supplied by the trusted server side, never by page scripts.
type Credentials struct {
	APIKey  string
	BaseURL string // Only used by EndpointCustom
}

// Provider turns a conversation into a reply.
type Provider interface {
	// SendConversation appends latestUserText to history, sends it and returns
	// the reply text or an advisory string. Callers must not pre-append it.
	SendConversation(ctx context.Context, history []models.ProviderMessage, latestUserText string, creds Credentials) string
}

// Advisories are the user-facing replacements for provider failures.
type Advisories struct {
	MissingKey  string
	MissingURL  string
	RateLimited string
	InvalidKey  string
	StatusError string // fmt pattern taking (status int, body string)
	NoResponse  string
	Connection  string
}

// GeminiAdvisories are the strings returned by the Gemini client.
var GeminiAdvisories = Advisories{
	MissingKey:  "Google Gemini API key is missing. Please provide a valid key.",
	RateLimited: "Rate limit exceeded. Please wait before sending another message.",
	InvalidKey:  "API key is invalid. Please check your Google Gemini API key.",
	StatusError: "Gemini API error (%d): %s",
	NoResponse:  "Sorry, I could not get a response from the Gemini API.",
	Connection:  "Sorry, there was an error connecting to the Gemini API. Please check your internet connection or try again later.",
}

// CustomAdvisories are the strings returned by the OpenAI-compatible client.
var CustomAdvisories = Advisories{
	MissingKey:  "Custom API key is missing. Please provide a valid key in settings.",
	MissingURL:  "Custom API URL is missing. Please provide a valid URL in settings.",
	RateLimited: "Rate limit exceeded. Please wait before sending another message.",
	InvalidKey:  "API key is invalid. Please check your custom API key.",
	StatusError: "Custom API error (%d): %s",
	NoResponse:  "Sorry, I could not get a response from the custom API.",
	Connection:  "Sorry, there was an error connecting to the custom API. Please check your internet connection or try again later.",
}

// ForStatus maps a non-2xx response to its advisory.
func (a Advisories) ForStatus(status int, body string) string {
	switch {
	case status == http.StatusTooManyRequests:
		return a.RateLimited
	case status == http.StatusUnauthorized:
		return a.InvalidKey
	case status == http.StatusBadRequest && strings.Contains(body, "API_KEY_INVALID"):
		// Gemini reports bad keys as 400 with this reason.
		return a.InvalidKey
	default:
		return fmt.Sprintf(a.StatusError, status, body)
	}
}

// Registry holds the Provider for each endpoint.
type Registry struct {
	providers map[Endpoint]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Endpoint]Provider)}
}

// Register adds p for endpoint, overwriting any previous registration.
func (r *Registry) Register(endpoint Endpoint, p Provider) {
	endpoint = endpoint.Canonical()
	if _, exists := r.providers[endpoint]; exists {
		log.Warn().Str("component", "provider").Str("endpoint", string(endpoint)).Msg("endpoint already registered, overwriting")
	}
	r.providers[endpoint] = p
}

// Get returns the provider registered for endpoint.
func (r *Registry) Get(endpoint Endpoint) (Provider, error) {
	p, ok := r.providers[endpoint.Canonical()]
	if !ok {
		return nil, fmt.Errorf("%w: no provider registered for %q", ErrInvalidEndpoint, endpoint)
	}
	return p, nil
}
