// Package demo fabricates canned replies when no provider call is wanted or possible.
package demo

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Fixed replies.
const (
	FirstGreeting      = "Hello! It's great to meet you. How can I assist you today?"
	ReturningGreeting  = "Hello again! How can I continue to help you?"
	HelpReply          = "I'm here to help! You can ask me questions about various topics, and I'll do my best to provide helpful responses. What would you like to know?"
	WeatherReply       = "I don't have access to real-time weather data, but I'd recommend checking a weather app or website for current conditions in your area."
	PerspectiveReply   = "I see you have a different perspective. Let me address that point..."
	ContinuationPrefix = "Building on our previous discussion, "
)

// Openers is the pool the random reply starts from.
var Openers = []string{
	"That's an interesting question! Let me think about that...",
	"I understand what you're asking. Here's my perspective on that topic.",
	"Great question! Based on what you've shared, I'd suggest...",
	"I can help you with that. Here are some thoughts:",
	"That's a complex topic. Let me break it down for you:",
	"I appreciate you asking about this. From my understanding...",
	"This is something I can definitely assist with. Consider this:",
	"You've raised an important point. Here's what I think:",
}

// FollowUps is appended to a random opener.
var FollowUps = []string{
	"Feel free to ask me more questions if you need clarification.",
	"I hope this helps! Let me know if you'd like to explore this topic further.",
	"What are your thoughts on this? I'd be happy to discuss it more.",
	"Is there a specific aspect of this you'd like me to elaborate on?",
	"I'm here if you have any follow-up questions about this topic.",
}

// Chooser returns an index in [0, n).
type Chooser func(n int) int

// Generator produces demo replies. Safe for concurrent use if its Chooser is.
type Generator struct {
	choose Chooser
	now    func() time.Time
}

type Option func(*Generator)

// WithChooser pins the random selection, mainly for tests.
func WithChooser(c Chooser) Option {
	return func(g *Generator) { g.choose = c }
}

// WithClock replaces time.Now for the "time" reply.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{choose: rand.IntN, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Reply returns the demo reply for message given how many messages the
// conversation already holds. The first matching rule wins.
func (g *Generator) Reply(message string, conversationLength int) string {
	lower := strings.ToLower(message)

	if conversationLength > 2 {
		if containsAny(lower, "what about", "and", "also") {
			return ContinuationPrefix + strings.ToLower(Openers[g.choose(len(Openers))])
		}
		if containsAny(lower, "but", "however") {
			return PerspectiveReply
		}
	}

	switch {
	case containsAny(lower, "hello", "hi"):
		if conversationLength > 0 {
			return ReturningGreeting
		}
		return FirstGreeting
	case strings.Contains(lower, "help"):
		return HelpReply
	case strings.Contains(lower, "weather"):
		return WeatherReply
	case strings.Contains(lower, "time"):
		return "The current time is " + g.now().Format("3:04:05 PM") + ". Is there anything else I can help you with?"
	}

	return Openers[g.choose(len(Openers))] + " " + FollowUps[g.choose(len(FollowUps))]
}
