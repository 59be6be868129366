package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath              string `json:"db_path"`
	DBSizeBytes         int64  `json:"db_size_bytes"`
	Profiles            int    `json:"profiles"`
	HouseProfiles       int    `json:"house_profiles"`
	Swipes              int    `json:"swipes"`
	Likes               int    `json:"likes"`
	Relationships       int    `json:"relationships"`
	ActiveRelationships int    `json:"active_relationships"`
	Messages            int    `json:"messages"`
	Retrospectives      int    `json:"retrospectives"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		dest  *int
		query string
	}{
		{&st.Profiles, `SELECT COUNT(*) FROM profiles`},
		{&st.HouseProfiles, `SELECT COUNT(*) FROM profiles WHERE is_house = 1`},
		{&st.Swipes, `SELECT COUNT(*) FROM swipes`},
		{&st.Likes, `SELECT COUNT(*) FROM swipes WHERE direction = 'like'`},
		{&st.Relationships, `SELECT COUNT(*) FROM relationships`},
		{&st.ActiveRelationships, `SELECT COUNT(*) FROM relationships WHERE active = 1`},
		{&st.Messages, `SELECT COUNT(*) FROM messages`},
		{&st.Retrospectives, `SELECT COUNT(*) FROM retrospectives`},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return st, err
		}
	}

	return st, nil
}
