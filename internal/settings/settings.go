// Package settings stores the per-session provider settings and theme.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/crypto"
	"convobot-backend/internal/provider"
	"convobot-backend/internal/store"
)

// SavedMessage is appended to the conversation after a successful save.
const SavedMessage = "Settings saved successfully!"

var (
	ErrInvalidEndpoint = provider.ErrInvalidEndpoint
	ErrInvalidTheme    = errors.New("theme must be light or dark")
)

// Settings selects the provider and its credentials.
type Settings struct {
	APIKey      string `json:"apiKey"`
	APIEndpoint string `json:"apiEndpoint"` // google | gemini | demo | custom
	CustomURL   string `json:"customUrl"`   // Base URL of an OpenAI-compatible API
}

// Defaults returns the values used for fields missing from storage.
func Defaults() Settings {
	return Settings{APIKey: "", APIEndpoint: string(provider.EndpointGoogle), CustomURL: ""}
}

// Endpoint parses APIEndpoint, treating unknown values as the default.
func (s Settings) Endpoint() provider.Endpoint {
	e, err := provider.ParseEndpoint(s.APIEndpoint)
	if err != nil {
		return provider.EndpointGemini
	}
	return e.Canonical()
}

func (s Settings) Credentials() provider.Credentials {
	return provider.Credentials{APIKey: s.APIKey, BaseURL: s.CustomURL}
}

// KeyHint returns the last four characters of the API key, or "" when it
// is too short to reveal any.
func (s Settings) KeyHint() string {
	r := []rune(s.APIKey)
	if len(r) <= 4 {
		return ""
	}
	return string(r[len(r)-4:])
}

// Patch carries optional updates; nil fields are left unchanged.
type Patch struct {
	APIKey      *string
	APIEndpoint *string
	CustomURL   *string
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Manager reads and writes settings for one scope. When a sealer is set the
// API key is encrypted at rest.
type Manager struct {
	kv          store.Store
	sealer      *crypto.Sealer
	settingsKey string
	themeKey    string
}

// NewManager scopes keys to scope (usually a session ID). sealer may be nil.
func NewManager(kv store.Store, sealer *crypto.Sealer, scope string) *Manager {
	return &Manager{
		kv:          kv,
		sealer:      sealer,
		settingsKey: store.ScopedKey(store.KeySettings, scope),
		themeKey:    store.ScopedKey(store.KeyTheme, scope),
	}
}

// Load returns the stored settings merged over Defaults.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	s := Defaults()
	data, err := m.kv.Get(ctx, m.settingsKey)
	if errors.Is(err, store.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warn().Str("component", "settings").Err(err).Msg("stored settings are corrupt, using defaults")
		return Defaults(), nil
	}

	if m.sealer != nil && s.APIKey != "" {
		key, err := m.sealer.Open(s.APIKey)
		if err != nil {
			log.Warn().Str("component", "settings").Err(err).Msg("could not decrypt stored API key, ignoring it")
			key = ""
		}
		s.APIKey = key
	}
	return s, nil
}

// Save validates and writes s.
func (m *Manager) Save(ctx context.Context, s Settings) error {
	if _, err := provider.ParseEndpoint(s.APIEndpoint); err != nil {
		return err
	}
	if m.sealer != nil {
		sealed, err := m.sealer.Seal(s.APIKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt API key: %w", err)
		}
		s.APIKey = sealed
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := m.kv.Set(ctx, m.settingsKey, data); err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}
	return nil
}

// Update applies p on top of the current settings and saves the result.
func (m *Manager) Update(ctx context.Context, p Patch) (Settings, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return s, err
	}
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.APIEndpoint != nil {
		s.APIEndpoint = *p.APIEndpoint
	}
	if p.CustomURL != nil {
		s.CustomURL = *p.CustomURL
	}
	if err := m.Save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Theme returns the stored theme, light when unset.
func (m *Manager) Theme(ctx context.Context) (Theme, error) {
	data, err := m.kv.Get(ctx, m.themeKey)
	if errors.Is(err, store.ErrNotFound) {
		return ThemeLight, nil
	}
	if err != nil {
		return ThemeLight, fmt.Errorf("failed to load theme: %w", err)
	}
	t, err := ParseTheme(string(data))
	if err != nil {
		return ThemeLight, nil
	}
	return t, nil
}

func (m *Manager) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := m.kv.Set(ctx, m.themeKey, []byte(t)); err != nil {
		return fmt.Errorf("failed to store theme: %w", err)
	}
	return nil
}
