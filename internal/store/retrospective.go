package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcliao/house-agents/internal/model"
)

func (s *SQLiteStore) SaveRetrospective(ctx context.Context, r model.Retrospective) (bool, error) {
	if r.RelationshipID == "" {
		return false, fmt.Errorf("retrospective needs a relationship")
	}
	id := r.ID
	if id == "" {
		id = s.newID()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO retrospectives (id, relationship_id, spark_moment, peak_moment, decline_signal,
		   fatal_message, duration_verdict, compatibility_postmortem, drama_rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.RelationshipID, r.SparkMoment, r.PeakMoment, r.DeclineSignal,
		r.FatalMessage, r.DurationVerdict, r.CompatibilityPostmortem, r.DramaRating, stamp(r.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert retrospective: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) GetRetrospective(ctx context.Context, relationshipID string) (*model.Retrospective, error) {
	var r model.Retrospective
	var spark, peak, decline, fatal, verdict, postmortem sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, relationship_id, spark_moment, peak_moment, decline_signal, fatal_message,
		        duration_verdict, compatibility_postmortem, drama_rating, created_at
		 FROM retrospectives WHERE relationship_id = ?`, relationshipID).Scan(
		&r.ID, &r.RelationshipID, &spark, &peak, &decline, &fatal,
		&verdict, &postmortem, &r.DramaRating, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("retrospective for %s: %w", relationshipID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	r.SparkMoment = spark.String
	r.PeakMoment = peak.String
	r.DeclineSignal = decline.String
	r.FatalMessage = fatal.String
	r.DurationVerdict = verdict.String
	r.CompatibilityPostmortem = postmortem.String
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}
