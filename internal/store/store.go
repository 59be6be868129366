// Package store provides the matchmaking storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrTrailingLimit is returned by SendMessage when the sender already has
// MaxTrailing unanswered messages at the end of the conversation.
var ErrTrailingLimit = errors.New("too many unanswered messages")

// CreateProfileParams holds parameters for registering a profile.
type CreateProfileParams struct {
	ID                   string // optional; generated when empty
	Name                 string
	Bio                  string
	Interests            []string
	Mood                 string
	ConversationStarters []string
	IsHouse              bool
	Personality          string // creates a linked persona when non-empty
}

// ListProfilesParams holds parameters for listing profiles.
type ListProfilesParams struct {
	HouseOnly  bool
	ExcludeIDs []string
	Limit      int // 0 means no limit
}

// SwipeParams holds parameters for recording a swipe.
type SwipeParams struct {
	ActorID   string
	TargetID  string
	Direction model.Direction
	At        time.Time // zero means now
}

// CreateRelationshipParams holds parameters for creating a relationship.
// X and Y may be given in either order.
type CreateRelationshipParams struct {
	X  string
	Y  string
	At time.Time
}

// EndRelationshipParams holds parameters for ending a relationship.
type EndRelationshipParams struct {
	ID      string
	EndedBy string
	Reason  string
	At      time.Time
}

// ListRelationshipsParams holds parameters for listing relationships.
type ListRelationshipsParams struct {
	ProfileID  string // empty means all profiles
	ActiveOnly bool
}

// SendMessageParams holds parameters for appending a message.
type SendMessageParams struct {
	RelationshipID string
	SenderID       string
	Content        string
	At             time.Time
	// MaxTrailing, when positive, refuses the send with ErrTrailingLimit if
	// the last MaxTrailing messages are all from SenderID.
	MaxTrailing int
}

// ReputationInput is the per-profile event aggregate the reputation job reads.
type ReputationInput struct {
	ProfileID         string
	LikesReceived     int
	Relationships     int
	MessagesSent      int
	BreakupsInitiated int
}

// Store defines the persistent store the activity cycle runs against.
type Store interface {
	// CreateProfile registers a profile and, optionally, its persona.
	CreateProfile(ctx context.Context, p CreateProfileParams) (*model.Profile, error)
	// GetProfile returns a profile with its persona resolved.
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	// ListProfiles returns profiles in registration order.
	ListProfiles(ctx context.Context, p ListProfilesParams) ([]model.Profile, error)
	// UpdateReputation overwrites a profile's reputation score.
	UpdateReputation(ctx context.Context, id string, score int) error

	// RecordSwipe appends a swipe event. Re-swipes are appended, not rejected.
	RecordSwipe(ctx context.Context, p SwipeParams) (*model.SwipeEvent, error)
	// SwipedTargets returns every profile the actor has swiped on, in either direction.
	SwipedTargets(ctx context.Context, actorID string) ([]string, error)
	// HasLiked reports whether actor has ever liked target.
	HasLiked(ctx context.Context, actorID, targetID string) (bool, error)
	// LikersOf returns the profiles that have liked target.
	LikersOf(ctx context.Context, targetID string) ([]string, error)
	// PendingLikeCounts counts, per profile, likes received from profiles it has not swiped on yet.
	PendingLikeCounts(ctx context.Context, ids []string) (map[string]int, error)

	// CreateRelationship inserts an active relationship for the canonical pair
	// only if neither side is currently paired and the pair has never matched.
	// created is false (with a nil error) when either guard rejects the insert.
	CreateRelationship(ctx context.Context, p CreateRelationshipParams) (rel *model.Relationship, created bool, err error)
	// GetRelationship returns a relationship by ID.
	GetRelationship(ctx context.Context, id string) (*model.Relationship, error)
	// ActiveRelationships returns the profile's active relationships, most recently started first.
	ActiveRelationships(ctx context.Context, profileID string) ([]model.Relationship, error)
	// ListRelationships lists relationships, most recently started first.
	ListRelationships(ctx context.Context, p ListRelationshipsParams) ([]model.Relationship, error)
	// EndRelationship deactivates an active relationship. ended is false when it was already inactive.
	EndRelationship(ctx context.Context, p EndRelationshipParams) (ended bool, err error)
	// RepairMonogamy closes all but the most recent active relationship of every over-paired profile.
	RepairMonogamy(ctx context.Context, at time.Time) ([]model.Relationship, error)
	// AwaitingReply reports which of ids are on the receiving end of the last message in an active relationship.
	AwaitingReply(ctx context.Context, ids []string) (map[string]bool, error)

	// SendMessage appends a message to a relationship. The MaxTrailing check
	// and the insert are one statement.
	SendMessage(ctx context.Context, p SendMessageParams) (*model.Message, error)
	// History returns up to limit of the most recent messages, oldest first. limit <= 0 returns all.
	History(ctx context.Context, relationshipID string, limit int) ([]model.Message, error)

	// SaveRetrospective stores the retrospective for a relationship once; later saves are ignored.
	SaveRetrospective(ctx context.Context, r model.Retrospective) (created bool, err error)
	// GetRetrospective returns the retrospective for a relationship.
	GetRetrospective(ctx context.Context, relationshipID string) (*model.Retrospective, error)

	// ReputationInputs aggregates event history for every profile.
	ReputationInputs(ctx context.Context) ([]ReputationInput, error)

	// Close closes the store.
	Close() error
}
