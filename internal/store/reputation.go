package store

import (
	"context"

	"github.com/rcliao/house-agents/internal/model"
)

func (s *SQLiteStore) ReputationInputs(ctx context.Context) ([]ReputationInput, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id,
		   (SELECT COUNT(DISTINCT sw.actor_id) FROM swipes sw
		     WHERE sw.target_id = p.id AND sw.direction = 'like'),
		   (SELECT COUNT(*) FROM relationships r
		     WHERE (r.profile_a = p.id OR r.profile_b = p.id)),
		   (SELECT COUNT(*) FROM messages m WHERE m.sender_id = p.id),
		   (SELECT COUNT(*) FROM relationships r
		     WHERE r.ended_by = p.id AND COALESCE(r.end_reason, '') != ?)
		 FROM profiles p
		 ORDER BY p.created_at, p.id`, model.EndReasonLegacyCleanup)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inputs []ReputationInput
	for rows.Next() {
		var in ReputationInput
		if err := rows.Scan(&in.ProfileID, &in.LikesReceived, &in.Relationships,
			&in.MessagesSent, &in.BreakupsInitiated); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}
