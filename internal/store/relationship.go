package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

const relationshipColumns = `id, profile_a, profile_b, active, started_at, ended_at, end_reason, ended_by`

// CreateRelationship stores the pair in canonical order so (A,B) and (B,A)
// land on the same row. The guard and the insert are one statement, so a
// concurrent writer cannot pair either side in between.
func (s *SQLiteStore) CreateRelationship(ctx context.Context, p CreateRelationshipParams) (*model.Relationship, bool, error) {
	if p.X == "" || p.Y == "" || p.X == p.Y {
		return nil, false, fmt.Errorf("invalid relationship pair %q/%q", p.X, p.Y)
	}
	pair := model.NewPair(p.X, p.Y)
	id := s.newID()
	at := stamp(p.At)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (id, profile_a, profile_b, active, started_at)
		 SELECT ?, ?, ?, 1, ?
		 WHERE NOT EXISTS (
		   SELECT 1 FROM relationships
		   WHERE active = 1 AND (profile_a IN (?, ?) OR profile_b IN (?, ?))
		 )
		 ON CONFLICT (profile_a, profile_b) DO NOTHING`,
		id, pair.A, pair.B, at, pair.A, pair.B, pair.A, pair.B)
	if err != nil {
		return nil, false, fmt.Errorf("insert relationship: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, false, nil
	}

	return &model.Relationship{
		ID:        id,
		Pair:      pair,
		Active:    true,
		StartedAt: parseTime(at),
	}, true, nil
}

func (s *SQLiteStore) GetRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ?`, id)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relationship %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) ActiveRelationships(ctx context.Context, profileID string) ([]model.Relationship, error) {
	return s.ListRelationships(ctx, ListRelationshipsParams{ProfileID: profileID, ActiveOnly: true})
}

func (s *SQLiteStore) ListRelationships(ctx context.Context, p ListRelationshipsParams) ([]model.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE 1 = 1`
	var args []interface{}
	if p.ProfileID != "" {
		query += ` AND (profile_a = ? OR profile_b = ?)`
		args = append(args, p.ProfileID, p.ProfileID)
	}
	if p.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY started_at DESC, id DESC`

	return s.queryRelationships(ctx, query, args...)
}

// EndRelationship only touches active rows, so two parties ending the same
// relationship in overlapping runs produce a single termination.
func (s *SQLiteStore) EndRelationship(ctx context.Context, p EndRelationshipParams) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE relationships SET active = 0, ended_at = ?, end_reason = ?, ended_by = ?
		 WHERE id = ? AND active = 1`,
		stamp(p.At), nullString(p.Reason), nullString(p.EndedBy), p.ID)
	if err != nil {
		return false, fmt.Errorf("end relationship: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) RepairMonogamy(ctx context.Context, at time.Time) ([]model.Relationship, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships
		 WHERE active = 1 ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	var active []model.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		active = append(active, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Most recent relationship wins for each profile.
	claimed := make(map[string]bool)
	endedAt := stamp(at)
	var closed []model.Relationship
	for _, r := range active {
		if !claimed[r.Pair.A] && !claimed[r.Pair.B] {
			claimed[r.Pair.A] = true
			claimed[r.Pair.B] = true
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE relationships SET active = 0, ended_at = ?, end_reason = ? WHERE id = ?`,
			endedAt, model.EndReasonLegacyCleanup, r.ID); err != nil {
			return nil, fmt.Errorf("close %s: %w", r.ID, err)
		}
		r.Active = false
		t := parseTime(endedAt)
		r.EndedAt = &t
		r.EndReason = model.EndReasonLegacyCleanup
		closed = append(closed, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *SQLiteStore) AwaitingReply(ctx context.Context, ids []string) (map[string]bool, error) {
	awaiting := make(map[string]bool)
	if len(ids) == 0 {
		return awaiting, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.profile_a, r.profile_b,
		        (SELECT m.sender_id FROM messages m WHERE m.relationship_id = r.id
		         ORDER BY m.created_at DESC, m.id DESC LIMIT 1)
		 FROM relationships r WHERE r.active = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		var lastSender sql.NullString
		if err := rows.Scan(&a, &b, &lastSender); err != nil {
			return nil, err
		}
		if !lastSender.Valid {
			continue
		}
		for _, side := range []string{a, b} {
			if want[side] && lastSender.String != side {
				awaiting[side] = true
			}
		}
	}
	return awaiting, rows.Err()
}

func (s *SQLiteStore) queryRelationships(ctx context.Context, query string, args ...interface{}) ([]model.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []model.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

func scanRelationship(row scanner) (model.Relationship, error) {
	var r model.Relationship
	var startedAt string
	var endedAt, reason, endedBy sql.NullString

	err := row.Scan(&r.ID, &r.Pair.A, &r.Pair.B, &r.Active, &startedAt, &endedAt, &reason, &endedBy)
	if err != nil {
		return r, err
	}
	r.StartedAt = parseTime(startedAt)
	r.EndedAt = parseNullTime(endedAt)
	r.EndReason = reason.String
	r.EndedBy = endedBy.String
	return r, nil
}
