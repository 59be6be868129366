// Package oracle asks a language model to make the decisions a house profile
// would make: swipes, messages, breakups and breakup retrospectives.
package oracle

import (
	"context"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

// Roles tag conversation history from the acting profile's point of view.
const (
	RoleActor   = "assistant"
	RolePartner = "user"
)

// DefaultBreakupReason is used when the model decides to break up without saying why.
const DefaultBreakupReason = "grew apart"

// Persona is the acting profile as the model should play it.
type Persona struct {
	Name                 string
	Bio                  string
	Personality          string
	Interests            []string
	Mood                 string
	ConversationStarters []string
}

// Summary is what the acting profile knows about the other party.
type Summary struct {
	Name      string
	Bio       string
	Interests []string
}

// Turn is one message of history, tagged with RoleActor or RolePartner.
type Turn struct {
	Role    string
	Content string
}

// BreakupDecision is the model's verdict on a relationship.
type BreakupDecision struct {
	ShouldBreakUp bool
	Reason        string
}

// LogLine is one message of a finished relationship, attributed by name.
type LogLine struct {
	Sender  string
	Content string
}

// RetrospectiveRequest carries everything needed to narrate a breakup.
type RetrospectiveRequest struct {
	Initiator Summary
	Partner   Summary
	Log       []LogLine
	StartedAt time.Time
	EndedAt   time.Time
	Reason    string
}

// Oracle makes decisions on behalf of house profiles. Implementations may be
// slow, may fail, and need not be deterministic.
type Oracle interface {
	DecideSwipe(ctx context.Context, actor Persona, candidate Summary) (bool, error)
	OpeningMessage(ctx context.Context, actor Persona, partner Summary) (string, error)
	Reply(ctx context.Context, actor Persona, partnerName string, history []Turn) (string, error)
	DecideBreakup(ctx context.Context, actor Persona, partner Summary, days float64, history []Turn) (BreakupDecision, error)
	Retrospective(ctx context.Context, req RetrospectiveRequest) (model.Retrospective, error)
}

// PersonaOf builds the persona for a profile.
func PersonaOf(p model.Profile) Persona {
	return Persona{
		Name:                 p.Name,
		Bio:                  p.Bio,
		Personality:          p.Personality(),
		Interests:            p.Interests,
		Mood:                 p.CurrentMood(),
		ConversationStarters: p.ConversationStarters,
	}
}

// SummaryOf builds the public summary of a profile.
func SummaryOf(p model.Profile) Summary {
	return Summary{Name: p.Name, Bio: p.Bio, Interests: p.Interests}
}

// TurnsFor tags messages relative to actorID.
func TurnsFor(actorID string, msgs []model.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		role := RolePartner
		if m.SenderID == actorID {
			role = RoleActor
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}
	return turns
}
