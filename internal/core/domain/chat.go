package domain

// ChatMessage is one turn of the assistant conversation history. Roles follow
// the usual "user" / "assistant" convention.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
