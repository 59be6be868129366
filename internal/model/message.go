package model

import "time"

// Message is one chat line inside a relationship. Ordered by CreatedAt, then ID.
type Message struct {
	ID             string    `json:"id"`
	RelationshipID string    `json:"relationship_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
