package activity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/store"
)

var epoch = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func verifyNoLeaks(t *testing.T) {
	t.Helper()
	// Registered first so it runs after every other cleanup, store Close included.
	t.Cleanup(func() {
		goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
	})
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func house(t *testing.T, s store.Store, id string) model.Profile {
	t.Helper()
	p, err := s.CreateProfile(context.Background(), store.CreateProfileParams{
		ID:          id,
		Name:        id,
		Bio:         "bio of " + id,
		IsHouse:     true,
		Personality: "curious",
	})
	require.NoError(t, err)
	return *p
}

func like(t *testing.T, s store.Store, actor, target string) {
	t.Helper()
	_, err := s.RecordSwipe(context.Background(), store.SwipeParams{ActorID: actor, TargetID: target, Direction: model.Like})
	require.NoError(t, err)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestEngine builds an engine with every probability gate closed, a fixed
// clock and a seeded random source.
func newTestEngine(st store.Store, o oracle.Oracle, tweak func(*Params), opts ...Option) (*Engine, *fakeClock) {
	p := DefaultParams()
	p.BreakupChance = 0
	p.ContinueChance = 0
	p.SoftDeadline = 0
	p.Workers = 4
	if tweak != nil {
		tweak(&p)
	}
	clock := &fakeClock{t: epoch}
	opts = append([]Option{WithClock(clock.Now), WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return New(st, o, nil, p, opts...), clock
}

// fakeOracle scripts decisions by profile name.
type fakeOracle struct {
	mu sync.Mutex

	pass       map[string]bool // candidates every actor passes on
	failSwipe  map[string]bool // candidates whose decision errors
	failReply  map[string]bool // partners a reply or opener to fails
	panicActor string
	onSwipe    func() // runs before every swipe decision
	breakup    oracle.BreakupDecision
	retroErr   error

	swipeCalls   int
	breakupCalls int
	retroCalls   int
	sent         []string
}

func (f *fakeOracle) DecideSwipe(ctx context.Context, actor oracle.Persona, c oracle.Summary) (bool, error) {
	if actor.Name == f.panicActor {
		panic("oracle exploded")
	}
	if f.onSwipe != nil {
		f.onSwipe()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swipeCalls++
	if f.failSwipe[c.Name] {
		return false, errors.New("model unavailable")
	}
	return !f.pass[c.Name], nil
}

func (f *fakeOracle) OpeningMessage(ctx context.Context, actor oracle.Persona, partner oracle.Summary) (string, error) {
	return f.say(actor.Name, partner.Name, "opener")
}

func (f *fakeOracle) Reply(ctx context.Context, actor oracle.Persona, partnerName string, history []oracle.Turn) (string, error) {
	return f.say(actor.Name, partnerName, "reply")
}

func (f *fakeOracle) say(from, to, kind string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReply[to] {
		return "", errors.New("model unavailable")
	}
	msg := fmt.Sprintf("%s %s->%s", kind, from, to)
	f.sent = append(f.sent, msg)
	return msg, nil
}

func (f *fakeOracle) DecideBreakup(ctx context.Context, actor oracle.Persona, partner oracle.Summary, days float64, history []oracle.Turn) (oracle.BreakupDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.breakupCalls++
	return f.breakup, nil
}

func (f *fakeOracle) Retrospective(ctx context.Context, req oracle.RetrospectiveRequest) (model.Retrospective, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retroCalls++
	if f.retroErr != nil {
		return model.Retrospective{}, f.retroErr
	}
	return model.Retrospective{SparkMoment: "first message", DramaRating: 4}, nil
}

// threadStore serves conversations from memory so one profile can hold
// several active relationships, which the SQLite store refuses to create.
type threadStore struct {
	store.Store

	mu   sync.Mutex
	rels []model.Relationship
	msgs map[string][]model.Message
	seq  int
}

func newThreadStore(base store.Store) *threadStore {
	return &threadStore{Store: base, msgs: map[string][]model.Message{}}
}

func (s *threadStore) addThread(id, a, b string, msgs ...model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rels = append(s.rels, model.Relationship{ID: id, Pair: model.NewPair(a, b), Active: true, StartedAt: epoch})
	for i := range msgs {
		msgs[i].RelationshipID = id
	}
	s.msgs[id] = msgs
}

func (s *threadStore) ActiveRelationships(ctx context.Context, profileID string) ([]model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Relationship
	for _, r := range s.rels {
		if r.Active && r.Pair.Has(profileID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *threadStore) GetRelationship(ctx context.Context, id string) (*model.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rels {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *threadStore) History(ctx context.Context, relationshipID string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.msgs[relationshipID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]model.Message(nil), msgs...), nil
}

func (s *threadStore) SendMessage(ctx context.Context, p store.SendMessageParams) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.MaxTrailing > 0 && trailingFrom(p.SenderID, s.msgs[p.RelationshipID]) >= p.MaxTrailing {
		return nil, store.ErrTrailingLimit
	}
	s.seq++
	m := model.Message{
		ID:             fmt.Sprintf("m%d", s.seq),
		RelationshipID: p.RelationshipID,
		SenderID:       p.SenderID,
		Content:        p.Content,
		CreatedAt:      p.At,
	}
	s.msgs[p.RelationshipID] = append(s.msgs[p.RelationshipID], m)
	return &m, nil
}

func (s *threadStore) sentBy(relationshipID, senderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs[relationshipID] {
		if m.SenderID == senderID {
			n++
		}
	}
	return n
}

func msg(sender string, at time.Time) model.Message {
	return model.Message{ID: sender + at.Format("150405"), SenderID: sender, Content: "hi", CreatedAt: at}
}
