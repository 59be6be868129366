// Package model defines the core matchmaking data types.
package model

import "time"

// Persona holds the traits the decision oracle role-plays for a house profile.
type Persona struct {
	ID          string `json:"id"`
	Personality string `json:"personality"`
}

// Profile represents a registered profile, house-controlled or human.
type Profile struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Bio                  string    `json:"bio,omitempty"`
	Interests            []string  `json:"interests,omitempty"`
	Mood                 string    `json:"mood,omitempty"`
	ConversationStarters []string  `json:"conversation_starters,omitempty"`
	IsHouse              bool      `json:"is_house"`
	Persona              *Persona  `json:"persona,omitempty"`
	Reputation           int       `json:"reputation"`
	CreatedAt            time.Time `json:"created_at"`
}

// DefaultMood is used when a profile has not set one.
const DefaultMood = "neutral"

// Personality returns the persona personality, or "" when the profile has none.
func (p Profile) Personality() string {
	if p.Persona == nil {
		return ""
	}
	return p.Persona.Personality
}

// CurrentMood returns the profile mood with the default applied.
func (p Profile) CurrentMood() string {
	if p.Mood == "" {
		return DefaultMood
	}
	return p.Mood
}
