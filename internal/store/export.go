package store

import (
	"context"

	"github.com/rcliao/house-agents/internal/model"
)

// ExportProfiles returns every profile with its persona, optionally only house profiles.
func (s *SQLiteStore) ExportProfiles(ctx context.Context, houseOnly bool) ([]model.Profile, error) {
	return s.ListProfiles(ctx, ListProfilesParams{HouseOnly: houseOnly})
}

// ImportProfiles registers profiles from an export. Profiles whose ID already
// exists are skipped.
func (s *SQLiteStore) ImportProfiles(ctx context.Context, profiles []model.Profile) (int, error) {
	imported := 0
	for _, p := range profiles {
		if p.ID != "" {
			if _, err := s.GetProfile(ctx, p.ID); err == nil {
				continue
			}
		}
		_, err := s.CreateProfile(ctx, CreateProfileParams{
			ID:                   p.ID,
			Name:                 p.Name,
			Bio:                  p.Bio,
			Interests:            p.Interests,
			Mood:                 p.Mood,
			ConversationStarters: p.ConversationStarters,
			IsHouse:              p.IsHouse,
			Personality:          p.Personality(),
		})
		if err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
