package domain

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is the provider-agnostic chat message shape passed from the
// relay use case to the chat-completion integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
