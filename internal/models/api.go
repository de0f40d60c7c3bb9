package models

// --- Proxy DTOs ---

// ProxyRequest is the body accepted by the chat proxy endpoint.
type ProxyRequest struct {
	Messages    []ProviderMessage `json:"messages"`
	APIKey      string            `json:"apiKey"`
	APIEndpoint string            `json:"apiEndpoint"` // "gemini" (default) or "demo"
}

// ProxyResponse is returned by the proxy on success.
type ProxyResponse struct {
	Response string `json:"response"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Session DTOs ---

// CodeBlockResponse describes a fenced code block extracted while formatting.
type CodeBlockResponse struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code"`
}

// MessageResponse is a conversation entry enriched with its rendered HTML.
type MessageResponse struct {
	Content    string              `json:"content"`
	Sender     Sender              `json:"sender"`
	Time       string              `json:"time"`
	HTML       string              `json:"html"`
	CodeBlocks []CodeBlockResponse `json:"code_blocks,omitempty"`
}

// ConversationResponse defines the representation of a session conversation.
type ConversationResponse struct {
	Messages         []MessageResponse `json:"messages"`
	AwaitingResponse bool              `json:"awaiting_response"`
}

// CreateSessionResponse is returned when a widget session is opened.
type CreateSessionResponse struct {
	Token     string            `json:"token"`
	SessionID string            `json:"session_id"`
	Messages  []MessageResponse `json:"messages"`
}

// SendMessageRequest defines the payload for submitting user text.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageResponse carries the user message as stored and the bot reply.
type SendMessageResponse struct {
	User  MessageResponse `json:"user"`
	Reply MessageResponse `json:"reply"`
}

// SettingsRequest defines the payload for saving settings.
// Nil fields keep their stored value.
type SettingsRequest struct {
	APIKey      *string `json:"apiKey,omitempty"`
	APIEndpoint *string `json:"apiEndpoint,omitempty"`
	CustomURL   *string `json:"customUrl,omitempty"`
}

// SettingsResponse never includes the raw API key.
type SettingsResponse struct {
	APIKeySet   bool   `json:"apiKeySet"`
	APIKeyHint  string `json:"apiKeyHint,omitempty"` // Last four characters, if set
	APIEndpoint string `json:"apiEndpoint"`
	CustomURL   string `json:"customUrl"`
}

// ThemeRequest / ThemeResponse carry the widget color scheme ("light" or "dark").
type ThemeRequest struct {
	Theme string `json:"theme"`
}

type ThemeResponse struct {
	Theme string `json:"theme"`
}

// FormatRequest asks the server to render markdown-lite text.
type FormatRequest struct {
	Text string `json:"text"`
}

// FormatResponse is the rendered HTML plus extracted code blocks.
type FormatResponse struct {
	HTML       string              `json:"html"`
	CodeBlocks []CodeBlockResponse `json:"code_blocks,omitempty"`
}
