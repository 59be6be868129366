package store

import (
	"context"
	"fmt"

	"github.com/rcliao/house-agents/internal/model"
)

func (s *SQLiteStore) RecordSwipe(ctx context.Context, p SwipeParams) (*model.SwipeEvent, error) {
	if !p.Direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q (valid: like, pass)", p.Direction)
	}
	if p.ActorID == p.TargetID {
		return nil, fmt.Errorf("profile %s cannot swipe on itself", p.ActorID)
	}

	ev := &model.SwipeEvent{
		ID:        s.newID(),
		ActorID:   p.ActorID,
		TargetID:  p.TargetID,
		Direction: p.Direction,
	}
	at := stamp(p.At)
	ev.CreatedAt = parseTime(at)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO swipes (id, actor_id, target_id, direction, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.ActorID, ev.TargetID, string(ev.Direction), at)
	if err != nil {
		return nil, fmt.Errorf("insert swipe: %w", err)
	}
	return ev, nil
}

func (s *SQLiteStore) SwipedTargets(ctx context.Context, actorID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT DISTINCT target_id FROM swipes WHERE actor_id = ?`, actorID)
}

func (s *SQLiteStore) HasLiked(ctx context.Context, actorID, targetID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swipes WHERE actor_id = ? AND target_id = ? AND direction = 'like'`,
		actorID, targetID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) LikersOf(ctx context.Context, targetID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT DISTINCT actor_id FROM swipes WHERE target_id = ? AND direction = 'like'`, targetID)
}

func (s *SQLiteStore) PendingLikeCounts(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.target_id, COUNT(DISTINCT s.actor_id)
		 FROM swipes s
		 WHERE s.direction = 'like'
		   AND s.target_id IN (`+placeholders(len(ids))+`)
		   AND NOT EXISTS (
		     SELECT 1 FROM swipes r WHERE r.actor_id = s.target_id AND r.target_id = s.actor_id
		   )
		 GROUP BY s.target_id`, stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
