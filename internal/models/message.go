package models

// Sender identifies who authored a Message in the widget conversation.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Role identifies the author of a ProviderMessage in the shape the provider expects.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
// This structure is what gets serialized into the "chatbot-history" snapshot.
type Message struct {
	Content string `json:"content"` // Raw message text (markdown-lite)
	Sender  Sender `json:"sender"`  // "user" or "bot"
	Time    string `json:"time"`    // Display-formatted time, e.g. "03:04 PM" or "Just now"
}

// ProviderMessage is the read-only projection of a Message sent to the external API.
type ProviderMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RoleFor maps a Message sender to the provider role (user->user, bot->assistant).
func RoleFor(sender Sender) Role {
	if sender == SenderBot {
		return RoleAssistant
	}
	return RoleUser
}

// ToProviderMessage projects the message into provider shape.
func (m Message) ToProviderMessage() ProviderMessage {
	return ProviderMessage{Role: RoleFor(m.Sender), Content: m.Content}
}
