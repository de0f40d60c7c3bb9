package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/auth"
	"convobot-backend/internal/conversation"
	"convobot-backend/internal/crypto"
	"convobot-backend/internal/models"
	"convobot-backend/internal/orchestrator"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/settings"
	"convobot-backend/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCreatingToken   = errors.New("failed to create session token")
	ErrCreatingSession = errors.New("failed to create session")
)

// keySession marks a session as issued; its value is the creation time.
const keySession = "chatbot-session"

// DefaultSessionIdleTTL is how long an unused session stays in memory.
const DefaultSessionIdleTTL = 30 * time.Minute

// ChatSession bundles everything that belongs to one widget session.
type ChatSession struct {
	ID       uuid.UUID
	Chat     *orchestrator.Session
	Settings *settings.Manager
}

type SessionServiceConfig struct {
	SessionSecret string
	SessionTTL    time.Duration
	SessionOpts   []orchestrator.Option // Applied to every orchestrator.Session
	IdleTTL       time.Duration         // Zero means DefaultSessionIdleTTL
	Now           func() time.Time
}

// SessionService keeps one ChatSession per session ID. Sessions idle for
// longer than IdleTTL are dropped from memory and rebuilt from the store on
// their next use, as after a restart.
type SessionService struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*ChatSession
	lastSeen  map[uuid.UUID]time.Time
	lastPrune time.Time
	store     store.Store
	sealer    *crypto.Sealer
	providers *provider.Registry
	cfg       SessionServiceConfig
}

func NewSessionService(s store.Store, sealer *crypto.Sealer, providers *provider.Registry, cfg SessionServiceConfig) *SessionService {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultSessionIdleTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionService{
		sessions:  make(map[uuid.UUID]*ChatSession),
		lastSeen:  make(map[uuid.UUID]time.Time),
		store:     s,
		sealer:    sealer,
		providers: providers,
		cfg:       cfg,
	}
}

// CreateSession issues a new session and a token for it.
func (s *SessionService) CreateSession(ctx context.Context) (string, *ChatSession, error) {
	id := uuid.New()
	created := []byte(s.cfg.Now().UTC().Format(time.RFC3339))
	if err := s.store.Set(ctx, store.ScopedKey(keySession, id.String()), created); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCreatingSession, err)
	}

	token, err := auth.NewSessionToken(id, s.cfg.SessionSecret, s.cfg.SessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCreatingToken, err)
	}

	cs := s.build(id)
	s.mu.Lock()
	s.track(id, cs)
	s.mu.Unlock()

	log.Info().Str("component", "session").Str("session_id", id.String()).Msg("session created")
	return token, cs, nil
}

// GetSession returns the live session, restoring it from the store on first use.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs, ok := s.sessions[id]; ok {
		s.track(id, cs)
		return cs, nil
	}

	_, err := s.store.Get(ctx, store.ScopedKey(keySession, id.String()))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	cs := s.build(id)
	if err := cs.Chat.Conversation().Restore(ctx); err != nil {
		log.Warn().Str("component", "session").Str("session_id", id.String()).Err(err).Msg("could not restore conversation history")
	}
	s.track(id, cs)
	return cs, nil
}

// Live reports how many sessions are held in memory.
func (s *SessionService) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// track marks id as used now and evicts idle sessions. Callers hold s.mu.
func (s *SessionService) track(id uuid.UUID, cs *ChatSession) {
	now := s.cfg.Now()
	s.sessions[id] = cs
	s.lastSeen[id] = now
	if now.Sub(s.lastPrune) <= s.cfg.IdleTTL {
		return
	}
	for k, seen := range s.lastSeen {
		if now.Sub(seen) <= s.cfg.IdleTTL {
			continue
		}
		// A turn in flight still writes through this session.
		if s.sessions[k].Chat.State() == orchestrator.AwaitingResponse {
			continue
		}
		delete(s.sessions, k)
		delete(s.lastSeen, k)
		log.Debug().Str("component", "session").Str("session_id", k.String()).Msg("evicted idle session")
	}
	s.lastPrune = now
}

// UpdateSettings saves p and appends the confirmation message.
func (s *SessionService) UpdateSettings(ctx context.Context, cs *ChatSession, p settings.Patch) (settings.Settings, models.Message, error) {
	updated, err := cs.Settings.Update(ctx, p)
	if err != nil {
		return updated, models.Message{}, err
	}
	msg := cs.Chat.Notify(ctx, settings.SavedMessage)
	return updated, msg, nil
}

func (s *SessionService) build(id uuid.UUID) *ChatSession {
	scope := id.String()
	mgr := settings.NewManager(s.store, s.sealer, scope)
	conv := conversation.New(s.store, store.ScopedKey(store.KeyHistory, scope))
	responder := orchestrator.NewDirectResponder(mgr, s.providers)
	return &ChatSession{
		ID:       id,
		Chat:     orchestrator.NewSession(conv, responder, s.cfg.SessionOpts...),
		Settings: mgr,
	}
}
