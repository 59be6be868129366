// Package reputation derives a profile's reputation score from its history.
package reputation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/store"
)

// Weights of each event in the score.
const (
	likeWeight         = 2
	relationshipWeight = 10
	breakupPenalty     = 5
	messageCap         = 50
)

// Score computes reputation from aggregated events. It is never negative.
func Score(in store.ReputationInput) int {
	messages := in.MessagesSent
	if messages > messageCap {
		messages = messageCap
	}
	s := likeWeight*in.LikesReceived +
		relationshipWeight*in.Relationships +
		messages -
		breakupPenalty*in.BreakupsInitiated
	if s < 0 {
		return 0
	}
	return s
}

// Report describes one recalculation.
type Report struct {
	Updated  int      `json:"updated"`
	Failures []string `json:"failures,omitempty"`
}

// Recalculator rewrites every profile's stored reputation.
type Recalculator struct {
	store store.Store
	log   *zap.Logger
}

// New returns a Recalculator. A nil logger discards output.
func New(st store.Store, log *zap.Logger) *Recalculator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recalculator{store: st, log: log}
}

// Recalculate scores every profile. A failure to update one profile is
// reported in Failures and does not stop the others.
func (r *Recalculator) Recalculate(ctx context.Context) (Report, error) {
	var rep Report
	inputs, err := r.store.ReputationInputs(ctx)
	if err != nil {
		return rep, fmt.Errorf("reputation inputs: %w", err)
	}
	for _, in := range inputs {
		if err := r.store.UpdateReputation(ctx, in.ProfileID, Score(in)); err != nil {
			r.log.Warn("reputation update failed", zap.String("profile", in.ProfileID), zap.Error(err))
			rep.Failures = append(rep.Failures, fmt.Sprintf("%s: %v", in.ProfileID, err))
			continue
		}
		rep.Updated++
	}
	r.log.Debug("reputation recalculated", zap.Int("updated", rep.Updated))
	return rep, nil
}
