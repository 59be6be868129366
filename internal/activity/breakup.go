package activity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/store"
)

// RunBreakup occasionally asks a paired profile whether to end its current
// relationship. Relationships younger than the grace period are left alone.
// A retrospective failure does not undo the breakup.
func (e *Engine) RunBreakup(ctx context.Context, actor model.Profile, res *RunResult) error {
	if !passes(e.rand.Float64(), e.params.BreakupChance) {
		return nil
	}

	cur, err := e.CurrentPartner(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("current partner: %w", err)
	}
	if cur == nil {
		return nil
	}
	now := e.now()
	age := now.Sub(cur.StartedAt)
	if age < e.params.BreakupGrace {
		return nil
	}

	partner, err := e.store.GetProfile(ctx, cur.PartnerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("partner %s: %w", cur.PartnerID, err)
	}
	recent, err := e.store.History(ctx, cur.RelationshipID, breakupContextMessages)
	if err != nil {
		return fmt.Errorf("recent messages: %w", err)
	}

	decision, err := e.oracle.DecideBreakup(ctx, oracle.PersonaOf(actor), oracle.SummaryOf(*partner),
		daysTogether(age), oracle.TurnsFor(actor.ID, recent))
	if err != nil {
		return fmt.Errorf("decide breakup with %s: %w", partner.Name, err)
	}
	if !decision.ShouldBreakUp {
		return nil
	}
	reason := decision.Reason
	if reason == "" {
		reason = oracle.DefaultBreakupReason
	}

	ended, err := e.store.EndRelationship(ctx, store.EndRelationshipParams{
		ID:      cur.RelationshipID,
		EndedBy: actor.ID,
		Reason:  reason,
		At:      now,
	})
	if err != nil {
		return fmt.Errorf("end relationship with %s: %w", partner.Name, err)
	}
	if !ended {
		return nil
	}
	res.Breakups = append(res.Breakups, BreakupOutcome{
		RelationshipID: cur.RelationshipID,
		PartnerID:      partner.ID,
		PartnerName:    partner.Name,
		Reason:         reason,
	})
	e.log.Info("broke up",
		zap.String("profile", actor.Name), zap.String("partner", partner.Name), zap.String("reason", reason))

	if err := e.writeRetrospective(ctx, actor, *partner, cur, reason, now); err != nil {
		e.log.Warn("retrospective failed", zap.String("relationship", cur.RelationshipID), zap.Error(err))
		res.addError(PhaseBreakup, err)
	}
	return nil
}

func (e *Engine) writeRetrospective(ctx context.Context, actor, partner model.Profile, cur *model.Partner, reason string, endedAt time.Time) error {
	msgs, err := e.store.History(ctx, cur.RelationshipID, retrospectiveMessages)
	if err != nil {
		return fmt.Errorf("retrospective log: %w", err)
	}
	names := map[string]string{actor.ID: actor.Name, partner.ID: partner.Name}
	lines := make([]oracle.LogLine, 0, len(msgs))
	for _, m := range msgs {
		name, ok := names[m.SenderID]
		if !ok {
			name = unknownName
		}
		lines = append(lines, oracle.LogLine{Sender: name, Content: m.Content})
	}

	retro, err := e.oracle.Retrospective(ctx, oracle.RetrospectiveRequest{
		Initiator: oracle.SummaryOf(actor),
		Partner:   oracle.SummaryOf(partner),
		Log:       lines,
		StartedAt: cur.StartedAt,
		EndedAt:   endedAt,
		Reason:    reason,
	})
	if err != nil {
		return fmt.Errorf("retrospective: %w", err)
	}
	retro.RelationshipID = cur.RelationshipID
	retro.CreatedAt = endedAt
	if _, err := e.store.SaveRetrospective(ctx, retro); err != nil {
		return fmt.Errorf("save retrospective: %w", err)
	}
	return nil
}

// daysTogether converts a relationship age to days, rounded to one decimal.
func daysTogether(age time.Duration) float64 {
	return math.Round(age.Hours()/24*10) / 10
}
