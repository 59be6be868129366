package activity

import (
	"context"
	"fmt"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/store"
)

// SelectCandidates returns up to k profiles the actor has never swiped on,
// with profiles that already liked the actor first.
func (e *Engine) SelectCandidates(ctx context.Context, actorID string, k int) ([]model.Profile, error) {
	if k <= 0 {
		return nil, nil
	}

	swiped, err := e.store.SwipedTargets(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("swiped targets: %w", err)
	}
	pool, err := e.store.ListProfiles(ctx, store.ListProfilesParams{
		ExcludeIDs: append(swiped, actorID),
		Limit:      k * e.params.CandidateSurplus,
	})
	if err != nil {
		return nil, fmt.Errorf("candidate pool: %w", err)
	}
	likers, err := e.store.LikersOf(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("likers: %w", err)
	}

	likedMe := make(map[string]bool, len(likers))
	for _, id := range likers {
		likedMe[id] = true
	}
	return prioritize(pool, likedMe, k), nil
}

// prioritize moves profiles in likedMe to the front, keeping relative order
// within each group, and truncates to k.
func prioritize(pool []model.Profile, likedMe map[string]bool, k int) []model.Profile {
	out := make([]model.Profile, 0, len(pool))
	for _, p := range pool {
		if likedMe[p.ID] {
			out = append(out, p)
		}
	}
	for _, p := range pool {
		if !likedMe[p.ID] {
			out = append(out, p)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}
