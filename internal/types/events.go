package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventFollowed       EventType = "user.followed"
	EventUnfollowed     EventType = "user.unfollowed"
	EventWalletCredited EventType = "wallet.credited"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// FollowChangedEvent is sent to a user when someone follows or unfollows them.
type FollowChangedEvent struct {
	Follower string `json:"follower"`
	Followed string `json:"followed"`
}

// WalletCreditedEvent is sent to a user when a reward cycle credits their wallet.
type WalletCreditedEvent struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
