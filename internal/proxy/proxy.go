// Package proxy implements the chat proxy endpoint independent of its
// transport, so the HTTP server and the Lambda function share it.
package proxy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/demo"
	"convobot-backend/internal/models"
	"convobot-backend/internal/provider"
)

const (
	MsgMethodNotAllowed  = "Method not allowed"
	MsgMessagesRequired  = "Messages array is required"
	MsgInvalidEndpoint   = "Invalid API endpoint"
	MsgInternalServerErr = "Internal server error"
)

// Headers are sent with every proxy response.
func Headers() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Content-Type":                 "application/json",
	}
}

// Response is a transport-neutral HTTP response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Handler answers proxy requests with Gemini or the demo generator.
type Handler struct {
	gemini provider.Provider
	demo   *demo.Generator
}

func NewHandler(gemini provider.Provider, gen *demo.Generator) *Handler {
	if gen == nil {
		gen = demo.NewGenerator()
	}
	return &Handler{gemini: gemini, demo: gen}
}

type proxyRequest struct {
	Messages    json.RawMessage `json:"messages"`
	APIKey      string          `json:"apiKey"`
	APIEndpoint string          `json:"apiEndpoint"`
}

// Handle processes one request. It never panics.
func (h *Handler) Handle(ctx context.Context, method, body string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "proxy").Interface("panic", r).Msg("chat proxy panicked")
			resp = errorResponse(http.StatusInternalServerError, MsgInternalServerErr)
		}
	}()

	switch method {
	case http.MethodOptions:
		return Response{StatusCode: http.StatusOK, Headers: Headers(), Body: ""}
	case http.MethodPost:
	default:
		return errorResponse(http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	}

	var req proxyRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		log.Warn().Str("component", "proxy").Err(err).Msg("invalid proxy request body")
		return errorResponse(http.StatusInternalServerError, MsgInternalServerErr)
	}

	var messages []models.ProviderMessage
	if len(req.Messages) == 0 || json.Unmarshal(req.Messages, &messages) != nil || len(messages) == 0 {
		return errorResponse(http.StatusBadRequest, MsgMessagesRequired)
	}

	latest := messages[len(messages)-1]
	history := messages[:len(messages)-1]

	switch provider.Endpoint(req.APIEndpoint) {
	case provider.EndpointDemo:
		return okResponse(h.demo.Reply(latest.Content, len(messages)))
	case provider.EndpointGemini, "":
		reply := h.gemini.SendConversation(ctx, history, latest.Content, provider.Credentials{APIKey: req.APIKey})
		return okResponse(reply)
	default:
		return errorResponse(http.StatusBadRequest, MsgInvalidEndpoint)
	}
}

func okResponse(reply string) Response {
	data, _ := json.Marshal(models.ProxyResponse{Response: reply})
	return Response{StatusCode: http.StatusOK, Headers: Headers(), Body: string(data)}
}

func errorResponse(status int, msg string) Response {
	data, _ := json.Marshal(models.ErrorResponse{Error: msg})
	return Response{StatusCode: status, Headers: Headers(), Body: string(data)}
}
