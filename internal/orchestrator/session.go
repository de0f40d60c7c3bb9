// Package orchestrator drives one chat: user input, think delay, provider
// call with demo fallback, and persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/conversation"
	"convobot-backend/internal/demo"
	"convobot-backend/internal/models"
)

const (
	MaxInputRunes      = 1000
	MinRequestInterval = 2 * time.Second // Recorded only; sends are never blocked on it
	FallbackNote       = "\n\n(Note: API unavailable, using demo mode)"
	ErrorReply         = "Sorry, I encountered an error. Please try again."

	DefaultThinkMin = time.Second
	DefaultThinkMax = 3 * time.Second
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a reply is already in progress")
)

type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func contextSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Result holds the two messages one submission adds to the conversation.
type Result struct {
	User  models.Message
	Reply models.Message
}

// Session serializes submissions for one conversation. At most one reply is
// in flight; submissions made meanwhile are rejected with ErrBusy.
type Session struct {
	mu              sync.Mutex
	state           State
	lastRequestTime time.Time

	conv      *conversation.Conversation
	responder Responder
	demo      *demo.Generator
	sleep     Sleeper
	thinkMin  time.Duration
	thinkMax  time.Duration
	now       func() time.Time
}

type Option func(*Session)

func WithSleeper(s Sleeper) Option {
	return func(sess *Session) { sess.sleep = s }
}

// WithThinkDelay sets the random delay range inserted before every reply.
func WithThinkDelay(min, max time.Duration) Option {
	return func(sess *Session) {
		sess.thinkMin, sess.thinkMax = min, max
	}
}

func WithDemoGenerator(g *demo.Generator) Option {
	return func(sess *Session) { sess.demo = g }
}

func WithClock(now func() time.Time) Option {
	return func(sess *Session) { sess.now = now }
}

// NewSession wires conv to responder.
func NewSession(conv *conversation.Conversation, responder Responder, opts ...Option) *Session {
	s := &Session{
		state:     Idle,
		conv:      conv,
		responder: responder,
		sleep:     contextSleep,
		thinkMin:  DefaultThinkMin,
		thinkMax:  DefaultThinkMax,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.demo == nil {
		s.demo = demo.NewGenerator()
	}
	return s
}

func (s *Session) Conversation() *conversation.Conversation {
	return s.conv
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastRequestTime reports when the last accepted submission started.
func (s *Session) LastRequestTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequestTime
}

// Submit runs one full turn and blocks until the reply is appended.
// Whitespace-only input returns ErrEmptyMessage and a concurrent submission
// returns ErrBusy; neither touches the conversation. Cancelling ctx does not
// abort the turn: the provider call and the persist always run to completion.
func (s *Session) Submit(ctx context.Context, text string) (Result, error) {
	ctx = context.WithoutCancel(ctx)
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	if r := []rune(text); len(r) > MaxInputRunes {
		text = string(r[:MaxInputRunes])
	}

	s.mu.Lock()
	if s.state == AwaitingResponse {
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.state = AwaitingResponse
	s.lastRequestTime = s.now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = Idle
		s.mu.Unlock()
	}()

	history := s.conv.ProviderHistory()
	user := s.conv.Append(s.conv.NewMessage(text, models.SenderUser))

	s.sleep(ctx, s.thinkDelay())
	replyText := s.reply(ctx, history, text)

	reply := s.conv.Append(s.conv.NewMessage(replyText, models.SenderBot))
	if err := s.conv.Persist(ctx); err != nil {
		log.Warn().Str("component", "session").Err(err).Msg("failed to persist conversation")
	}
	return Result{User: user, Reply: reply}, nil
}

// Clear resets the conversation unless a reply is in flight.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AwaitingResponse {
		return ErrBusy
	}
	return s.conv.Clear(ctx)
}

// Notify appends a bot message outside the request flow, e.g. after a
// settings change.
func (s *Session) Notify(ctx context.Context, text string) models.Message {
	msg := s.conv.Append(s.conv.NewMessage(text, models.SenderBot))
	if err := s.conv.Persist(ctx); err != nil {
		log.Warn().Str("component", "session").Err(err).Msg("failed to persist conversation")
	}
	return msg
}

func (s *Session) thinkDelay() time.Duration {
	if s.thinkMax <= s.thinkMin {
		return s.thinkMin
	}
	return s.thinkMin + rand.N(s.thinkMax-s.thinkMin)
}

// reply never fails: responder errors fall back to the demo generator and
// panics become ErrorReply.
func (s *Session) reply(ctx context.Context, history []models.ProviderMessage, text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "session").Interface("panic", r).Msg("responder panicked")
			out = ErrorReply
		}
	}()

	resp, err := s.responder.Respond(ctx, history, text)
	if err != nil {
		log.Warn().Str("component", "session").Err(err).Msg("API failed, falling back to demo mode")
		return s.demo.Reply(text, len(history)+1) + FallbackNote
	}
	return resp
}
