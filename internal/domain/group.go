package domain

import "time"

// Group kinds the bot cares about.
const (
	// GroupKindAdmin marks the chat where approval cards are posted.
	GroupKindAdmin = "admin"
	// GroupKindHistory marks the chat receiving the transaction history feed.
	GroupKindHistory = "history"
)

// Group represents a Telegram chat where the bot participates.
type Group struct {
	ChatID     int64     `bson:"chat_id" json:"chat_id"`
	Title      string    `bson:"title" json:"title"`
	Kind       string    `bson:"kind,omitempty" json:"kind,omitempty"`
	JoinedAt   time.Time `bson:"joined_at" json:"joined_at"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
}
