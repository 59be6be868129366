package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustProfile(t *testing.T, s *SQLiteStore, id string, house bool) *model.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), CreateProfileParams{
		ID: id, Name: "name-" + id, IsHouse: house, Personality: "warm",
	})
	if err != nil {
		t.Fatalf("create profile %s: %v", id, err)
	}
	return p
}

func TestCreateAndGetProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProfile(ctx, CreateProfileParams{
		Name:                 "Ada",
		Bio:                  "likes engines",
		Interests:            []string{"math", "poetry"},
		ConversationStarters: []string{"hello"},
		IsHouse:              true,
		Personality:          "curious and direct",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ada" || !got.IsHouse {
		t.Errorf("unexpected profile: %+v", got)
	}
	if len(got.Interests) != 2 || got.Interests[1] != "poetry" {
		t.Errorf("expected interests round-trip, got %v", got.Interests)
	}
	if got.Personality() != "curious and direct" {
		t.Errorf("expected persona resolved, got %q", got.Personality())
	}
	if got.CurrentMood() != model.DefaultMood {
		t.Errorf("expected default mood, got %q", got.CurrentMood())
	}
}

func TestGetProfileNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProfile(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfileWithoutPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, _ := s.CreateProfile(ctx, CreateProfileParams{Name: "Human"})
	got, _ := s.GetProfile(ctx, p.ID)
	if got.Persona != nil {
		t.Errorf("expected nil persona, got %+v", got.Persona)
	}
	if got.Personality() != "" {
		t.Errorf("expected empty personality, got %q", got.Personality())
	}
}

func TestListProfilesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", false)
	mustProfile(t, s, "c", true)

	house, _ := s.ListProfiles(ctx, ListProfilesParams{HouseOnly: true})
	if len(house) != 2 {
		t.Errorf("expected 2 house profiles, got %d", len(house))
	}

	rest, _ := s.ListProfiles(ctx, ListProfilesParams{ExcludeIDs: []string{"a", "c"}})
	if len(rest) != 1 || rest[0].ID != "b" {
		t.Errorf("expected only b, got %+v", rest)
	}

	limited, _ := s.ListProfiles(ctx, ListProfilesParams{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "a" {
		t.Errorf("expected first registered profile, got %+v", limited)
	}
}

func TestSwipeQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		mustProfile(t, s, id, true)
	}

	s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "b", Direction: model.Like})
	s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "c", Direction: model.Pass})
	s.RecordSwipe(ctx, SwipeParams{ActorID: "c", TargetID: "b", Direction: model.Like})
	// Re-swipes are appended, not rejected.
	if _, err := s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "b", Direction: model.Like}); err != nil {
		t.Fatalf("re-swipe: %v", err)
	}

	swiped, _ := s.SwipedTargets(ctx, "a")
	if len(swiped) != 2 {
		t.Errorf("expected 2 distinct targets, got %v", swiped)
	}

	liked, _ := s.HasLiked(ctx, "a", "b")
	if !liked {
		t.Error("expected a to have liked b")
	}
	liked, _ = s.HasLiked(ctx, "a", "c")
	if liked {
		t.Error("pass must not count as like")
	}

	likers, _ := s.LikersOf(ctx, "b")
	if len(likers) != 2 {
		t.Errorf("expected 2 likers of b, got %v", likers)
	}
}

func TestRecordSwipeRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)

	if _, err := s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "b", Direction: "superlike"}); err == nil {
		t.Error("expected error for unknown direction")
	}
	if _, err := s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "a", Direction: model.Like}); err == nil {
		t.Error("expected error for self swipe")
	}
}

func TestPendingLikeCountsIgnoresAnswered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		mustProfile(t, s, id, true)
	}

	s.RecordSwipe(ctx, SwipeParams{ActorID: "b", TargetID: "a", Direction: model.Like})
	s.RecordSwipe(ctx, SwipeParams{ActorID: "c", TargetID: "a", Direction: model.Like})
	s.RecordSwipe(ctx, SwipeParams{ActorID: "d", TargetID: "a", Direction: model.Like})
	// a already answered c.
	s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "c", Direction: model.Pass})

	counts, err := s.PendingLikeCounts(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if counts["a"] != 2 {
		t.Errorf("expected 2 pending likes for a, got %d", counts["a"])
	}
	if counts["b"] != 0 {
		t.Errorf("expected 0 pending likes for b, got %d", counts["b"])
	}
}

func TestCreateRelationshipCanonicalPair(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "b", true)
	mustProfile(t, s, "a", true)

	rel, created, err := s.CreateRelationship(ctx, CreateRelationshipParams{X: "b", Y: "a"})
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if rel.Pair.A != "a" || rel.Pair.B != "b" {
		t.Errorf("expected canonical pair a/b, got %+v", rel.Pair)
	}

	_, created, err = s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})
	if err != nil {
		t.Fatalf("duplicate insert should not error: %v", err)
	}
	if created {
		t.Error("reversed pair must resolve to the existing row")
	}

	all, _ := s.ListRelationships(ctx, ListRelationshipsParams{})
	if len(all) != 1 {
		t.Errorf("expected exactly 1 relationship row, got %d", len(all))
	}
}

func TestCreateRelationshipRefusesPairedProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		mustProfile(t, s, id, true)
	}

	s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "c"})
	_, created, err := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created {
		t.Error("a is already paired; insert must be rejected")
	}
}

func TestCreateRelationshipPairNeverRematches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)

	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})
	s.EndRelationship(ctx, EndRelationshipParams{ID: rel.ID, EndedBy: "a", Reason: "bored"})

	_, created, err := s.CreateRelationship(ctx, CreateRelationshipParams{X: "b", Y: "a"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created {
		t.Error("a pair is matched at most once")
	}
}

func TestConcurrentCreateRelationshipKeepsMonogamy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "hub", true)
	for i := 0; i < 8; i++ {
		mustProfile(t, s, fmt.Sprintf("p%d", i), true)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.CreateRelationship(ctx, CreateRelationshipParams{X: "hub", Y: fmt.Sprintf("p%d", i)})
		}(i)
	}
	wg.Wait()

	active, _ := s.ActiveRelationships(ctx, "hub")
	if len(active) != 1 {
		t.Errorf("expected exactly 1 active relationship for hub, got %d", len(active))
	}
}

func TestEndRelationshipOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	ended, err := s.EndRelationship(ctx, EndRelationshipParams{ID: rel.ID, EndedBy: "a", Reason: "distance"})
	if err != nil || !ended {
		t.Fatalf("end: ended=%v err=%v", ended, err)
	}
	ended, _ = s.EndRelationship(ctx, EndRelationshipParams{ID: rel.ID, EndedBy: "b", Reason: "me too"})
	if ended {
		t.Error("second end must be a no-op")
	}

	got, _ := s.GetRelationship(ctx, rel.ID)
	if got.Active || got.EndedBy != "a" || got.EndReason != "distance" || got.EndedAt == nil {
		t.Errorf("unexpected ended relationship: %+v", got)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		s.SendMessage(ctx, SendMessageParams{
			RelationshipID: rel.ID, SenderID: "a",
			Content: fmt.Sprintf("m%d", i), At: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all, _ := s.History(ctx, rel.ID, 0)
	if len(all) != 5 || all[0].Content != "m0" || all[4].Content != "m4" {
		t.Errorf("expected chronological m0..m4, got %+v", all)
	}

	last, _ := s.History(ctx, rel.ID, 2)
	if len(last) != 2 || last[0].Content != "m3" || last[1].Content != "m4" {
		t.Errorf("expected last two in order, got %+v", last)
	}
}

func TestSendMessageRequiresContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	if _, err := s.SendMessage(ctx, SendMessageParams{RelationshipID: rel.ID, SenderID: "a", Content: "   "}); err == nil {
		t.Error("expected error for blank content")
	}
}

func TestSendMessageMaxTrailing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	base := time.Now().Add(-time.Hour)
	send := func(sender string, i int) error {
		_, err := s.SendMessage(ctx, SendMessageParams{
			RelationshipID: rel.ID, SenderID: sender, Content: fmt.Sprintf("m%d", i),
			At: base.Add(time.Duration(i) * time.Minute), MaxTrailing: 2,
		})
		return err
	}

	if err := send("a", 0); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := send("a", 1); err != nil {
		t.Fatalf("second: %v", err)
	}
	if err := send("a", 2); !errors.Is(err, ErrTrailingLimit) {
		t.Fatalf("third in a row: expected ErrTrailingLimit, got %v", err)
	}
	if err := send("b", 3); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if err := send("a", 4); err != nil {
		t.Fatalf("after reply: %v", err)
	}
}

func TestConcurrentSendsRespectMaxTrailing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	base := time.Now().Add(-time.Hour)
	s.SendMessage(ctx, SendMessageParams{RelationshipID: rel.ID, SenderID: "b", Content: "hi", At: base})
	s.SendMessage(ctx, SendMessageParams{RelationshipID: rel.ID, SenderID: "a", Content: "hey", At: base.Add(time.Minute)})

	const runs = 4
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.SendMessage(ctx, SendMessageParams{
				RelationshipID: rel.ID, SenderID: "a", Content: fmt.Sprintf("again %d", i), MaxTrailing: 2,
			})
		}(i)
	}
	wg.Wait()

	sent := 0
	for _, err := range errs {
		switch {
		case err == nil:
			sent++
		case !errors.Is(err, ErrTrailingLimit):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if sent != 1 {
		t.Errorf("expected exactly 1 send to succeed, got %d", sent)
	}

	msgs, _ := s.History(ctx, rel.ID, 0)
	if len(msgs) != 3 || msgs[0].SenderID != "b" {
		t.Errorf("expected [b a a], got %+v", msgs)
	}
}

func TestAwaitingReply(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		mustProfile(t, s, id, true)
	}
	ab, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})
	s.CreateRelationship(ctx, CreateRelationshipParams{X: "c", Y: "d"})
	s.SendMessage(ctx, SendMessageParams{RelationshipID: ab.ID, SenderID: "b", Content: "hi a"})

	got, err := s.AwaitingReply(ctx, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatalf("awaiting: %v", err)
	}
	if !got["a"] || got["b"] || got["c"] || got["d"] {
		t.Errorf("expected only a awaiting reply, got %v", got)
	}
}

func TestRepairMonogamyKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		mustProfile(t, s, id, true)
	}

	// Simulate a legacy anomaly written around the guard.
	older := formatTime(time.Now().Add(-2 * time.Hour))
	newer := formatTime(time.Now().Add(-time.Hour))
	s.db.Exec(`INSERT INTO relationships (id, profile_a, profile_b, active, started_at) VALUES ('r1', 'a', 'b', 1, ?)`, older)
	s.db.Exec(`INSERT INTO relationships (id, profile_a, profile_b, active, started_at) VALUES ('r2', 'a', 'c', 1, ?)`, newer)

	closed, err := s.RepairMonogamy(ctx, time.Now())
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != "r1" {
		t.Fatalf("expected r1 closed, got %+v", closed)
	}

	r1, _ := s.GetRelationship(ctx, "r1")
	if r1.Active || !r1.IsLegacyCleanup() || r1.EndedBy != "" {
		t.Errorf("unexpected repaired row: %+v", r1)
	}
	active, _ := s.ActiveRelationships(ctx, "a")
	if len(active) != 1 || active[0].ID != "r2" {
		t.Errorf("expected r2 to survive, got %+v", active)
	}
}

func TestRetrospectiveSavedOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", true)
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})

	created, err := s.SaveRetrospective(ctx, model.Retrospective{RelationshipID: rel.ID, SparkMoment: "first", DramaRating: 4})
	if err != nil || !created {
		t.Fatalf("save: created=%v err=%v", created, err)
	}
	created, _ = s.SaveRetrospective(ctx, model.Retrospective{RelationshipID: rel.ID, SparkMoment: "second"})
	if created {
		t.Error("retrospective must never be replaced")
	}

	got, err := s.GetRetrospective(ctx, rel.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SparkMoment != "first" || got.DramaRating != 4 {
		t.Errorf("unexpected retrospective: %+v", got)
	}
}

func TestReputationInputs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		mustProfile(t, s, id, true)
	}
	s.RecordSwipe(ctx, SwipeParams{ActorID: "b", TargetID: "a", Direction: model.Like})
	s.RecordSwipe(ctx, SwipeParams{ActorID: "c", TargetID: "a", Direction: model.Like})
	rel, _, _ := s.CreateRelationship(ctx, CreateRelationshipParams{X: "a", Y: "b"})
	s.SendMessage(ctx, SendMessageParams{RelationshipID: rel.ID, SenderID: "a", Content: "hey"})
	s.EndRelationship(ctx, EndRelationshipParams{ID: rel.ID, EndedBy: "a", Reason: "bored"})

	inputs, err := s.ReputationInputs(ctx)
	if err != nil {
		t.Fatalf("inputs: %v", err)
	}
	byID := map[string]ReputationInput{}
	for _, in := range inputs {
		byID[in.ProfileID] = in
	}
	a := byID["a"]
	if a.LikesReceived != 2 || a.Relationships != 1 || a.MessagesSent != 1 || a.BreakupsInitiated != 1 {
		t.Errorf("unexpected inputs for a: %+v", a)
	}
	if byID["b"].BreakupsInitiated != 0 {
		t.Errorf("b did not initiate the breakup: %+v", byID["b"])
	}
}

func TestExportImportProfiles(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)
	mustProfile(t, src, "a", true)
	mustProfile(t, src, "b", false)

	exported, err := src.ExportProfiles(ctx, false)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newTestStore(t)
	n, err := dst.ImportProfiles(ctx, exported)
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	n, _ = dst.ImportProfiles(ctx, exported)
	if n != 0 {
		t.Errorf("expected re-import to skip existing profiles, got %d", n)
	}

	got, _ := dst.GetProfile(ctx, "a")
	if got.Personality() != "warm" {
		t.Errorf("expected persona carried over, got %q", got.Personality())
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustProfile(t, s, "a", true)
	mustProfile(t, s, "b", false)
	s.RecordSwipe(ctx, SwipeParams{ActorID: "a", TargetID: "b", Direction: model.Like})

	st, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Profiles != 2 || st.HouseProfiles != 1 || st.Swipes != 1 || st.Likes != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
