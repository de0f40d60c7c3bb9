// Package conversation holds the ordered message list of one chat and
// persists it to a key-value store.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"convobot-backend/internal/models"
	"convobot-backend/internal/store"
)

const (
	SeedContent = "Hello! I'm your AI assistant. How can I help you today?"
	SeedTime    = "Just now"
	TimeLayout  = "03:04 PM"
)

var ErrCorruptSnapshot = errors.New("stored conversation is not valid JSON")

// Seed returns the greeting every conversation starts with.
func Seed() models.Message {
	return models.Message{Content: SeedContent, Sender: models.SenderBot, Time: SeedTime}
}

// Conversation is safe for concurrent use. It always holds the seed greeting
// at index 0; the seed is never persisted or sent to a provider.
type Conversation struct {
	mu       sync.RWMutex
	messages []models.Message
	kv       store.Store
	key      string
	now      func() time.Time
}

type Option func(*Conversation)

// WithClock overrides the clock used to stamp new messages.
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) { c.now = now }
}

// New creates a conversation persisted under key in kv.
func New(kv store.Store, key string, opts ...Option) *Conversation {
	c := &Conversation{
		messages: []models.Message{Seed()},
		kv:       kv,
		key:      key,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMessage builds a message stamped with the current time.
func (c *Conversation) NewMessage(content string, sender models.Sender) models.Message {
	return models.Message{Content: content, Sender: sender, Time: c.now().Format(TimeLayout)}
}

// Append adds msg at the end. A message without a time is stamped now.
func (c *Conversation) Append(msg models.Message) models.Message {
	if msg.Time == "" {
		msg.Time = c.now().Format(TimeLayout)
	}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return msg
}

// Messages returns a copy of all messages, seed included.
func (c *Conversation) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// ProviderHistory projects every non-seed message, in order.
func (c *Conversation) ProviderHistory() []models.ProviderMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ProviderMessage, 0, len(c.messages)-1)
	for _, m := range c.messages[1:] {
		out = append(out, m.ToProviderMessage())
	}
	return out
}

// Clear resets to the seed greeting and deletes the stored snapshot.
func (c *Conversation) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.messages = []models.Message{Seed()}
	c.mu.Unlock()

	if err := c.kv.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("failed to delete conversation snapshot: %w", err)
	}
	return nil
}

// Persist writes every message except the seed as one JSON array.
func (c *Conversation) Persist(ctx context.Context) error {
	c.mu.RLock()
	snapshot := make([]models.Message, len(c.messages)-1)
	copy(snapshot, c.messages[1:])
	c.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := c.kv.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}

// Restore appends the stored snapshot, if any. Entries without content or
// sender are skipped. The snapshot is not written back.
func (c *Conversation) Restore(ctx context.Context) error {
	data, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	var saved []models.Message
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	restored := make([]models.Message, 0, len(saved))
	for _, m := range saved {
		if m.Content == "" || m.Sender == "" {
			log.Debug().Str("component", "conversation").Str("key", c.key).Msg("skipping incomplete stored message")
			continue
		}
		if m.Time == "" {
			m.Time = SeedTime
		}
		restored = append(restored, m)
	}

	c.mu.Lock()
	c.messages = append(c.messages, restored...)
	c.mu.Unlock()
	return nil
}
