package rest

import "time"

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse contains the bearer token returned after successful
// authentication or refresh.
type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Conversation types

// ConversationType represents the type of a conversation.
type ConversationType string

const (
	ConversationTypePublic  ConversationType = "public"
	ConversationTypePrivate ConversationType = "private"
	ConversationTypeDirect  ConversationType = "direct"
)

// ConversationInfo represents conversation metadata.
type ConversationInfo struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Type      ConversationType `json:"type"`
	OwnerID   *string          `json:"owner_id,omitempty"`
	Archived  bool             `json:"archived"`
	CreatedAt time.Time        `json:"created_at"`
}

// CreateConversationRequest is the request body for creating a conversation.
type CreateConversationRequest struct {
	Name string           `json:"name"`
	Type ConversationType `json:"type,omitempty"` // defaults to "public" if not specified
}

// Message history types

// MessageInfo represents a single message in the history.
type MessageInfo struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	User           string    `json:"user"` // display name
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessagesResponse contains a page of messages with pagination info.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
