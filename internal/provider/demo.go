package provider

import (
	"context"

	"convobot-backend/internal/demo"
	"convobot-backend/internal/models"
)

// DemoProvider answers locally with canned replies.
type DemoProvider struct {
	gen *demo.Generator
}

func NewDemoProvider(gen *demo.Generator) *DemoProvider {
	if gen == nil {
		gen = demo.NewGenerator()
	}
	return &DemoProvider{gen: gen}
}

// SendConversation implements Provider. The conversation length counts the
// latest message.
func (p *DemoProvider) SendConversation(_ context.Context, history []models.ProviderMessage, latestUserText string, _ Credentials) string {
	return p.gen.Reply(latestUserText, len(history)+1)
}
