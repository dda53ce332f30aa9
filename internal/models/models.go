package models

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUserExists      = errors.New("user already exists")
	ErrSessionRequired = errors.New("session required")
)

// User is a registered identity in the directory.
type User struct {
	Username  string `json:"username"`
	CreatedAt int64  `json:"createdAt"` // Unix timestamp (milliseconds)
}

// ChatMessage is a persisted direct message.
type ChatMessage struct {
	Seq       uint64 `json:"seq"`
	From      string `json:"from"`
	To        string `json:"to"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp (milliseconds), non-decreasing per insertion
}

// HistoryEntry is a single line of a conversation replay.
type HistoryEntry struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Payload string `json:"payload"`
}
