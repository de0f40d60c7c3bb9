package demo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func pinned(i int) Chooser {
	return func(n int) int { return i % n }
}

func TestReplyGreeting(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, FirstGreeting, g.Reply("Hello!", 0))
	assert.Equal(t, "Hello! It's great to meet you. How can I assist you today?", g.Reply("Hello!", 0))
	assert.Equal(t, ReturningGreeting, g.Reply("hi there", 1))
}

func TestReplyFixedRules(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, WeatherReply, g.Reply("what's the weather", 0))
	assert.Equal(t, HelpReply, g.Reply("HELP me", 0))
}

func TestReplyTimeUsesClock(t *testing.T) {
	now := time.Date(2024, 5, 1, 15, 4, 5, 0, time.UTC)
	g := NewGenerator(WithClock(func() time.Time { return now }))
	assert.Equal(t, "The current time is 3:04:05 PM. Is there anything else I can help you with?", g.Reply("what time is it", 0))
}

func TestReplyContextRulesNeedHistory(t *testing.T) {
	g := NewGenerator(WithChooser(pinned(1)))

	assert.Equal(t,
		"Building on our previous discussion, i understand what you're asking. here's my perspective on that topic.",
		g.Reply("What about cats?", 3))
	assert.Equal(t, PerspectiveReply, g.Reply("but why", 3))

	// Same inputs without history fall through to the generic reply.
	assert.Equal(t, Openers[1]+" "+FollowUps[1], g.Reply("but why", 2))
}

func TestReplyContinuationBeatsGreeting(t *testing.T) {
	g := NewGenerator(WithChooser(pinned(0)))
	assert.Equal(t, ContinuationPrefix+"that's an interesting question! let me think about that...", g.Reply("hi and hello", 5))
}

func TestReplyRandomIsPinned(t *testing.T) {
	g := NewGenerator(WithChooser(pinned(4)))
	assert.Equal(t, Openers[4]+" "+FollowUps[4], g.Reply("tell me about go", 0))
}
