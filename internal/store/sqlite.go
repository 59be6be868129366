package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/house-agents/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection serializes writers and gives read-your-writes
	// across goroutines of the same process.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id          TEXT PRIMARY KEY,
		personality TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		bio                   TEXT,
		interests             TEXT,
		mood                  TEXT,
		conversation_starters TEXT,
		is_house              INTEGER NOT NULL DEFAULT 0,
		persona_id            TEXT REFERENCES personas(id),
		reputation            INTEGER NOT NULL DEFAULT 0,
		created_at            TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_house ON profiles(is_house);

	CREATE TABLE IF NOT EXISTS swipes (
		id         TEXT PRIMARY KEY,
		actor_id   TEXT NOT NULL REFERENCES profiles(id),
		target_id  TEXT NOT NULL REFERENCES profiles(id),
		direction  TEXT NOT NULL CHECK (direction IN ('like', 'pass')),
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_swipes_actor ON swipes(actor_id, target_id);
	CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes(target_id, direction);

	CREATE TABLE IF NOT EXISTS relationships (
		id         TEXT PRIMARY KEY,
		profile_a  TEXT NOT NULL REFERENCES profiles(id),
		profile_b  TEXT NOT NULL REFERENCES profiles(id),
		active     INTEGER NOT NULL DEFAULT 1,
		started_at TEXT NOT NULL,
		ended_at   TEXT,
		end_reason TEXT,
		ended_by   TEXT,
		CHECK (profile_a < profile_b),
		UNIQUE (profile_a, profile_b)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_a ON relationships(profile_a, active);
	CREATE INDEX IF NOT EXISTS idx_relationships_b ON relationships(profile_b, active);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		relationship_id TEXT NOT NULL REFERENCES relationships(id),
		sender_id       TEXT NOT NULL REFERENCES profiles(id),
		content         TEXT NOT NULL,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_rel ON messages(relationship_id, created_at, id);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);

	CREATE TABLE IF NOT EXISTS retrospectives (
		id                       TEXT PRIMARY KEY,
		relationship_id          TEXT NOT NULL UNIQUE REFERENCES relationships(id),
		spark_moment             TEXT,
		peak_moment              TEXT,
		decline_signal           TEXT,
		fatal_message            TEXT,
		duration_verdict         TEXT,
		compatibility_postmortem TEXT,
		drama_rating             INTEGER NOT NULL DEFAULT 0,
		created_at               TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateProfile(ctx context.Context, p CreateProfileParams) (*model.Profile, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	now := time.Now().UTC()
	id := p.ID
	if id == "" {
		id = s.newID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var persona *model.Persona
	var personaID *string
	if p.Personality != "" {
		persona = &model.Persona{ID: s.newID(), Personality: p.Personality}
		personaID = &persona.ID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO personas (id, personality) VALUES (?, ?)`,
			persona.ID, persona.Personality); err != nil {
			return nil, fmt.Errorf("insert persona: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (id, name, bio, interests, mood, conversation_starters, is_house, persona_id, reputation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		id, p.Name, nullString(p.Bio), jsonList(p.Interests), nullString(p.Mood),
		jsonList(p.ConversationStarters), p.IsHouse, personaID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Profile{
		ID:                   id,
		Name:                 p.Name,
		Bio:                  p.Bio,
		Interests:            p.Interests,
		Mood:                 p.Mood,
		ConversationStarters: p.ConversationStarters,
		IsHouse:              p.IsHouse,
		Persona:              persona,
		CreatedAt:            now,
	}, nil
}

const profileColumns = `p.id, p.name, p.bio, p.interests, p.mood, p.conversation_starters,
	p.is_house, p.reputation, p.created_at, pe.id, pe.personality`

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles p LEFT JOIN personas pe ON pe.id = p.persona_id
		 WHERE p.id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context, p ListProfilesParams) ([]model.Profile, error) {
	where := []string{"1 = 1"}
	var args []interface{}

	if p.HouseOnly {
		where = append(where, "p.is_house = 1")
	}
	if len(p.ExcludeIDs) > 0 {
		where = append(where, "p.id NOT IN ("+placeholders(len(p.ExcludeIDs))+")")
		args = append(args, stringArgs(p.ExcludeIDs)...)
	}

	query := `SELECT ` + profileColumns + `
		FROM profiles p LEFT JOIN personas pe ON pe.id = p.persona_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at, p.id`
	if p.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		pr, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, pr)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStore) UpdateReputation(ctx context.Context, id string, score int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET reputation = ? WHERE id = ?`, score, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanProfile resolves the optional persona join into a single typed field.
func scanProfile(row scanner) (model.Profile, error) {
	var p model.Profile
	var bio, interests, mood, starters, personaID, personality sql.NullString
	var createdAt string

	err := row.Scan(
		&p.ID, &p.Name, &bio, &interests, &mood, &starters,
		&p.IsHouse, &p.Reputation, &createdAt, &personaID, &personality,
	)
	if err != nil {
		return p, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.Bio = bio.String
	p.Mood = mood.String
	if interests.Valid {
		json.Unmarshal([]byte(interests.String), &p.Interests)
	}
	if starters.Valid {
		json.Unmarshal([]byte(starters.String), &p.ConversationStarters)
	}
	if personaID.Valid {
		p.Persona = &model.Persona{ID: personaID.String, Personality: personality.String}
	}
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// stamp formats t, substituting the current time for a zero value.
func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return formatTime(t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func jsonList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	b, _ := json.Marshal(items)
	s := string(b)
	return &s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
