package activity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/store"
)

// RunSwipes lets a single profile swipe on fresh candidates and forms a
// relationship on a mutual like. A paired profile does nothing. Failures on
// one candidate are recorded and the next candidate is tried.
func (e *Engine) RunSwipes(ctx context.Context, actor model.Profile, res *RunResult) error {
	paired, err := e.IsPaired(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("pairing check: %w", err)
	}
	if paired {
		return nil
	}

	candidates, err := e.SelectCandidates(ctx, actor.ID, e.params.SwipesPerRun)
	if err != nil {
		return err
	}

	persona := oracle.PersonaOf(actor)
	for _, c := range candidates {
		if err := e.swipe(ctx, actor, persona, c, res); err != nil {
			e.log.Warn("swipe failed",
				zap.String("profile", actor.Name), zap.String("candidate", c.ID), zap.Error(err))
			res.addError(PhaseSwipe, err)
		}
	}
	return nil
}

func (e *Engine) swipe(ctx context.Context, actor model.Profile, persona oracle.Persona, c model.Profile, res *RunResult) error {
	right, err := e.oracle.DecideSwipe(ctx, persona, oracle.SummaryOf(c))
	if err != nil {
		return fmt.Errorf("decide on %s: %w", c.Name, err)
	}

	dir := model.Pass
	if right {
		dir = model.Like
	}
	if _, err := e.store.RecordSwipe(ctx, store.SwipeParams{
		ActorID:   actor.ID,
		TargetID:  c.ID,
		Direction: dir,
		At:        e.now(),
	}); err != nil {
		return fmt.Errorf("record swipe on %s: %w", c.Name, err)
	}
	res.Swipes = append(res.Swipes, SwipeOutcome{TargetID: c.ID, Direction: dir})

	if dir != model.Like {
		return nil
	}
	created, err := e.match(ctx, actor.ID, c.ID)
	if err != nil {
		return fmt.Errorf("match with %s: %w", c.Name, err)
	}
	if created {
		res.RelationshipsCreated++
		e.log.Info("matched", zap.String("profile", actor.Name), zap.String("partner", c.Name))
	}
	return nil
}

// match creates a relationship between actor and target when target has
// liked actor back and neither is paired. Both pairing states are re-read
// right before the write; the store rejects anything that slips through.
func (e *Engine) match(ctx context.Context, actorID, targetID string) (bool, error) {
	e.matchMu.Lock()
	defer e.matchMu.Unlock()

	for _, id := range []string{actorID, targetID} {
		paired, err := e.IsPaired(ctx, id)
		if err != nil {
			return false, err
		}
		if paired {
			return false, nil
		}
	}

	mutual, err := e.store.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return false, err
	}
	if !mutual {
		return false, nil
	}

	rel, created, err := e.store.CreateRelationship(ctx, store.CreateRelationshipParams{
		X:  actorID,
		Y:  targetID,
		At: e.now(),
	})
	if err != nil {
		return false, err
	}
	if !created {
		e.log.Debug("relationship insert rejected by store",
			zap.String("a", actorID), zap.String("b", targetID))
		return false, nil
	}
	e.log.Debug("relationship created", zap.String("relationship", rel.ID))
	return true, nil
}
