package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convobot-backend/internal/conversation"
	"convobot-backend/internal/demo"
	"convobot-backend/internal/models"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/settings"
	"convobot-backend/internal/store/memory"
)

func noSleep(context.Context, time.Duration) {}

func newTestSession(t *testing.T, r Responder, opts ...Option) (*Session, *memory.MemoryStore) {
	t.Helper()
	kv := memory.NewMemoryStore()
	conv := conversation.New(kv, "chatbot-history")
	opts = append([]Option{WithSleeper(noSleep), WithDemoGenerator(demo.NewGenerator(demo.WithChooser(func(int) int { return 0 })))}, opts...)
	return NewSession(conv, r, opts...), kv
}

func echo(_ context.Context, _ []models.ProviderMessage, latest string) (string, error) {
	return "echo: " + latest, nil
}

func TestSubmitAppendsAndPersists(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestSession(t, ResponderFunc(echo))

	res, err := s.Submit(ctx, "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.User.Content)
	assert.Equal(t, "echo: hello there", res.Reply.Content)
	assert.Equal(t, models.SenderBot, res.Reply.Sender)
	assert.Equal(t, 3, s.Conversation().Len())
	assert.Equal(t, Idle, s.State())

	raw, err := kv.Get(ctx, "chatbot-history")
	require.NoError(t, err)
	var saved []models.Message
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Len(t, saved, 2)
}

func TestSubmitPassesHistoryWithoutLatest(t *testing.T) {
	var seen [][]models.ProviderMessage
	s, _ := newTestSession(t, ResponderFunc(func(ctx context.Context, h []models.ProviderMessage, latest string) (string, error) {
		seen = append(seen, h)
		return "ok", nil
	}))

	_, err := s.Submit(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "two")
	require.NoError(t, err)

	assert.Empty(t, seen[0])
	assert.Equal(t, []models.ProviderMessage{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "ok"},
	}, seen[1])
}

func TestSubmitIgnoresEmpty(t *testing.T) {
	s, kv := newTestSession(t, ResponderFunc(echo))
	_, err := s.Submit(context.Background(), " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 1, s.Conversation().Len())
	assert.Equal(t, 0, kv.Len())
	assert.True(t, s.LastRequestTime().IsZero())
}

func TestSubmitTruncatesLongInput(t *testing.T) {
	s, _ := newTestSession(t, ResponderFunc(echo))
	res, err := s.Submit(context.Background(), strings.Repeat("é", MaxInputRunes+50))
	require.NoError(t, err)
	assert.Equal(t, MaxInputRunes, len([]rune(res.User.Content)))
}

func TestSubmitWhileAwaitingIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s, _ := newTestSession(t, ResponderFunc(func(ctx context.Context, _ []models.ProviderMessage, latest string) (string, error) {
		close(started)
		<-release
		return "done", nil
	}))

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		errCh <- err
	}()

	<-started
	assert.Equal(t, AwaitingResponse, s.State())
	lenBefore := s.Conversation().Len()

	_, err := s.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, lenBefore, s.Conversation().Len())
	assert.ErrorIs(t, s.Clear(context.Background()), ErrBusy)

	close(release)
	require.NoError(t, <-errCh)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, 3, s.Conversation().Len())
}

func TestSubmitFallsBackToDemoOnError(t *testing.T) {
	s, _ := newTestSession(t, ResponderFunc(func(context.Context, []models.ProviderMessage, string) (string, error) {
		return "", errors.New("network down")
	}))

	res, err := s.Submit(context.Background(), "what's the weather")
	require.NoError(t, err)
	assert.Equal(t, demo.WeatherReply+FallbackNote, res.Reply.Content)
	assert.Equal(t, Idle, s.State())
}

func TestSubmitRecoversFromPanic(t *testing.T) {
	s, _ := newTestSession(t, ResponderFunc(func(context.Context, []models.ProviderMessage, string) (string, error) {
		panic("boom")
	}))

	res, err := s.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, ErrorReply, res.Reply.Content)
	assert.Equal(t, Idle, s.State())
}

func TestSubmitRecordsButDoesNotEnforceInterval(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestSession(t, ResponderFunc(echo), WithClock(func() time.Time { return now }))

	_, err := s.Submit(context.Background(), "one")
	require.NoError(t, err)
	assert.Equal(t, now, s.LastRequestTime())

	// Immediately again, well inside MinRequestInterval.
	_, err = s.Submit(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Conversation().Len())
}

func TestSubmitSleepsWithinThinkRange(t *testing.T) {
	var slept time.Duration
	s, _ := newTestSession(t, ResponderFunc(echo),
		WithSleeper(func(_ context.Context, d time.Duration) { slept = d }),
		WithThinkDelay(time.Second, 3*time.Second))

	_, err := s.Submit(context.Background(), "hi")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, slept, time.Second)
	assert.Less(t, slept, 3*time.Second)
}

func TestNotifyAppendsBotMessage(t *testing.T) {
	s, _ := newTestSession(t, ResponderFunc(echo))
	msg := s.Notify(context.Background(), settings.SavedMessage)
	assert.Equal(t, models.SenderBot, msg.Sender)
	assert.Equal(t, 2, s.Conversation().Len())
}

func TestDirectResponderUsesSettings(t *testing.T) {
	ctx := context.Background()
	mgr := settings.NewManager(memory.NewMemoryStore(), nil, "s1")
	endpoint := "demo"
	_, err := mgr.Update(ctx, settings.Patch{APIEndpoint: &endpoint})
	require.NoError(t, err)

	reg := provider.NewRegistry()
	reg.Register(provider.EndpointDemo, provider.NewDemoProvider(demo.NewGenerator()))

	out, err := NewDirectResponder(mgr, reg).Respond(ctx, nil, "help")
	require.NoError(t, err)
	assert.Equal(t, demo.HelpReply, out)

	// Gemini is not registered here, so the default endpoint is an error.
	_, err = NewDirectResponder(settings.NewManager(memory.NewMemoryStore(), nil, "s2"), reg).Respond(ctx, nil, "help")
	assert.ErrorIs(t, err, provider.ErrInvalidEndpoint)
}

func TestProxyResponder(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"response", http.StatusOK, `{"response":"from proxy"}`, "from proxy", false},
		{"error field", http.StatusOK, `{"error":"bad"}`, "", true},
		{"no fields", http.StatusOK, `{}`, "", true},
		{"non 2xx", http.StatusInternalServerError, `{"error":"Internal server error"}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req models.ProxyRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "gemini", req.APIEndpoint)
				assert.Empty(t, req.APIKey)
				if assert.Len(t, req.Messages, 2) {
					assert.Equal(t, models.ProviderMessage{Role: models.RoleUser, Content: "latest"}, req.Messages[1])
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			r := NewProxyResponder(srv.URL, provider.EndpointGemini, 0)
			got, err := r.Respond(context.Background(), []models.ProviderMessage{{Role: models.RoleAssistant, Content: "prev"}}, "latest")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubmitCompletesAfterCallerCancels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"real answer"}]}}]}`))
	}))
	defer srv.Close()

	reg := provider.NewRegistry()
	reg.Register(provider.EndpointGemini, provider.NewGeminiClient(srv.URL, "test", "server-key", 0))
	mgr := settings.NewManager(memory.NewMemoryStore(), nil, "s1")
	s, kv := newTestSession(t, NewDirectResponder(mgr, reg))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := s.Submit(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "real answer", res.Reply.Content)
	assert.Error(t, ctx.Err())

	raw, err := kv.Get(context.Background(), "chatbot-history")
	require.NoError(t, err)
	var saved []models.Message
	require.NoError(t, json.Unmarshal(raw, &saved))
	if assert.Len(t, saved, 2) {
		assert.Equal(t, "real answer", saved[1].Content)
	}
}
