package chat

import "time"

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable transcript entry.
type Message struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	Role              Role      `json:"role"`
	Content           string    `json:"content"`
	IsDocumentExcerpt bool      `json:"isDocumentExcerpt,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
