package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is a single conversation turn
type HistoryEntry struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRecord is a saved conversation as persisted to disk
type SessionRecord struct {
	Timestamp    time.Time      `json:"timestamp"`
	UserName     string         `json:"user_name"`
	Title        string         `json:"title,omitempty"`
	MessageCount int            `json:"message_count"`
	Messages     []HistoryEntry `json:"messages"`
}

// SessionSummary describes a saved conversation without its messages
type SessionSummary struct {
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	UserName     string    `json:"user_name"`
	Title        string    `json:"title,omitempty"`
	MessageCount int       `json:"message_count"`
}
