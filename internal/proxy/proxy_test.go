package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convobot-backend/internal/demo"
	"convobot-backend/internal/models"
	"convobot-backend/internal/provider"
)

type recordingProvider struct {
	history []models.ProviderMessage
	latest  string
	creds   provider.Credentials
	reply   string
	panics  bool
}

func (p *recordingProvider) SendConversation(_ context.Context, history []models.ProviderMessage, latest string, creds provider.Credentials) string {
	if p.panics {
		panic("boom")
	}
	p.history, p.latest, p.creds = history, latest, creds
	return p.reply
}

func decodeBody(t *testing.T, body string) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestHandleOptions(t *testing.T) {
	resp := NewHandler(&recordingProvider{}, nil).Handle(context.Background(), http.MethodOptions, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "GET, POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
}

func TestHandleRejectsOtherMethods(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		resp := NewHandler(&recordingProvider{}, nil).Handle(context.Background(), m, "")
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, m)
		assert.Equal(t, MsgMethodNotAllowed, decodeBody(t, resp.Body)["error"])
	}
}

func TestHandleValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"missing messages", `{"apiEndpoint":"demo"}`, http.StatusBadRequest, MsgMessagesRequired},
		{"empty messages", `{"messages":[]}`, http.StatusBadRequest, MsgMessagesRequired},
		{"messages not array", `{"messages":"hi"}`, http.StatusBadRequest, MsgMessagesRequired},
		{"unknown endpoint", `{"messages":[{"role":"user","content":"hi"}],"apiEndpoint":"custom"}`, http.StatusBadRequest, MsgInvalidEndpoint},
		{"invalid json", `{`, http.StatusInternalServerError, MsgInternalServerErr},
		{"empty body", ``, http.StatusInternalServerError, MsgInternalServerErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewHandler(&recordingProvider{}, nil).Handle(context.Background(), http.MethodPost, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.msg, decodeBody(t, resp.Body)["error"])
		})
	}
}

func TestHandleDemo(t *testing.T) {
	body := `{"messages":[{"role":"user","content":"a"},{"role":"assistant","content":"b"},{"role":"user","content":"but why"}],"apiEndpoint":"demo"}`
	resp := NewHandler(&recordingProvider{}, demo.NewGenerator()).Handle(context.Background(), http.MethodPost, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, demo.PerspectiveReply, decodeBody(t, resp.Body)["response"])
}

func TestHandleGemini(t *testing.T) {
	for _, endpoint := range []string{"gemini", ""} {
		p := &recordingProvider{reply: "gemini says hi"}
		body := `{"messages":[{"role":"user","content":"first"},{"role":"assistant","content":"reply"},{"role":"user","content":"second"}],"apiKey":"k","apiEndpoint":"` + endpoint + `"}`

		resp := NewHandler(p, nil).Handle(context.Background(), http.MethodPost, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "gemini says hi", decodeBody(t, resp.Body)["response"])
		assert.Equal(t, "second", p.latest)
		assert.Len(t, p.history, 2)
		assert.Equal(t, "k", p.creds.APIKey)
	}
}

func TestHandleRecoversPanic(t *testing.T) {
	body := `{"messages":[{"role":"user","content":"hi"}]}`
	resp := NewHandler(&recordingProvider{panics: true}, nil).Handle(context.Background(), http.MethodPost, body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, MsgInternalServerErr, decodeBody(t, resp.Body)["error"])
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
}
