package activity

import (
	"fmt"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

// Phase names one step of a profile pipeline.
type Phase string

const (
	PhaseBreakup      Phase = "breakup"
	PhaseSwipe        Phase = "swipe"
	PhaseConversation Phase = "conversation"
)

// SwipeOutcome is one recorded swipe.
type SwipeOutcome struct {
	TargetID  string          `json:"target_id"`
	Direction model.Direction `json:"direction"`
}

// BreakupOutcome is one relationship ended by the acting profile.
type BreakupOutcome struct {
	RelationshipID string `json:"relationship_id"`
	PartnerID      string `json:"partner_id"`
	PartnerName    string `json:"partner_name"`
	Reason         string `json:"reason"`
}

// RunResult tallies what one profile did during a run. It lives only for the run.
type RunResult struct {
	ProfileID            string           `json:"profile_id"`
	ProfileName          string           `json:"profile_name"`
	Swipes               []SwipeOutcome   `json:"swipes"`
	Replies              int              `json:"replies"`
	Openers              int              `json:"openers"`
	Continuations        int              `json:"continuations"`
	RelationshipsCreated int              `json:"relationships_created"`
	Breakups             []BreakupOutcome `json:"breakups"`
	Errors               []string         `json:"errors"`
}

func (r *RunResult) addError(phase Phase, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", phase, err))
}

// MessagesSent counts messages of every kind.
func (r RunResult) MessagesSent() int {
	return r.Replies + r.Openers + r.Continuations
}

// MessageCounts breaks messages down by conversation phase.
type MessageCounts struct {
	Replies       int `json:"replies"`
	Openers       int `json:"openers"`
	Continuations int `json:"continuations"`
	Total         int `json:"total"`
}

// RunSummary is returned to the caller of RunActivityCycle.
type RunSummary struct {
	RunID                 string        `json:"run_id"`
	StartedAt             time.Time     `json:"started_at"`
	FinishedAt            time.Time     `json:"finished_at"`
	Results               []RunResult   `json:"results"`
	TotalSwipes           int           `json:"total_swipes"`
	Messages              MessageCounts `json:"messages"`
	RelationshipsCreated  int           `json:"relationships_created"`
	RelationshipsEnded    int           `json:"relationships_ended"`
	RepairedRelationships int           `json:"repaired_relationships,omitempty"`
	Skipped               []string      `json:"skipped,omitempty"`
	Errors                []string      `json:"errors"`
}

// tally folds per-profile results into the totals and the error list.
// Run-level errors already in s.Errors stay first.
func (s *RunSummary) tally() {
	for _, r := range s.Results {
		s.TotalSwipes += len(r.Swipes)
		s.Messages.Replies += r.Replies
		s.Messages.Openers += r.Openers
		s.Messages.Continuations += r.Continuations
		s.RelationshipsCreated += r.RelationshipsCreated
		s.RelationshipsEnded += len(r.Breakups)
		for _, e := range r.Errors {
			s.Errors = append(s.Errors, fmt.Sprintf("[%s] %s", r.ProfileName, e))
		}
	}
	s.Messages.Total = s.Messages.Replies + s.Messages.Openers + s.Messages.Continuations
}
