package parley

// MessageEvent emitted when someone sends a message.
type MessageEvent struct {
	Conversation string `json:"conversation"`
	User         string `json:"user"`
	Text         string `json:"text"`
	TS           int64  `json:"ts"`
}

// UserEvent emitted when a user joins or leaves a conversation.
type UserEvent struct {
	Conversation string `json:"conversation"`
	User         string `json:"user"`
}

// HistoryEvent carries a backlog of messages replayed on join.
type HistoryEvent struct {
	Conversation string         `json:"conversation"`
	Messages     []MessageEvent `json:"messages"`
}
