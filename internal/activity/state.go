package activity

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/store"
)

const unknownName = "Unknown"

// IsPaired reports whether the profile is in an active relationship. It reads
// the store every time so writes made earlier in the run are visible.
func (e *Engine) IsPaired(ctx context.Context, profileID string) (bool, error) {
	rels, err := e.store.ActiveRelationships(ctx, profileID)
	if err != nil {
		return false, err
	}
	return len(rels) > 0, nil
}

// CurrentPartner returns the profile's partner, or nil when single. If
// several relationships are active the most recently started one wins.
func (e *Engine) CurrentPartner(ctx context.Context, profileID string) (*model.Partner, error) {
	rels, err := e.store.ActiveRelationships(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, nil
	}
	if len(rels) > 1 {
		e.log.Warn("profile has several active relationships",
			zap.String("profile", profileID), zap.Int("active", len(rels)))
	}

	rel := rels[0]
	partner := &model.Partner{
		RelationshipID: rel.ID,
		PartnerID:      rel.Pair.Other(profileID),
		PartnerName:    unknownName,
		StartedAt:      rel.StartedAt,
	}
	p, err := e.store.GetProfile(ctx, partner.PartnerID)
	switch {
	case err == nil:
		partner.PartnerName = p.Name
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return partner, nil
}
