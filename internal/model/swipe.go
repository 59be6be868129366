package model

import "time"

// Direction is the outcome of a swipe.
type Direction string

const (
	Like Direction = "like"
	Pass Direction = "pass"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Like || d == Pass
}

// SwipeEvent records one profile's decision about another. Append-only.
type SwipeEvent struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id"`
	Direction Direction `json:"direction"`
	CreatedAt time.Time `json:"created_at"`
}
