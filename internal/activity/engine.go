// Package activity runs house profiles through one activity cycle: breakup
// checks, swiping and messaging, while keeping every profile in at most one
// active relationship.
package activity

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/config"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/reputation"
	"github.com/rcliao/house-agents/internal/store"
)

const (
	// recentWindow is how many trailing messages decide which phase a relationship belongs to.
	recentWindow = 3
	// maxUnanswered is the longest run of messages one side may send without a reply.
	maxUnanswered = 2
	// breakupContextMessages is how much recent history the breakup decision sees.
	breakupContextMessages = 5
	// retrospectiveMessages bounds the history handed to the retrospective.
	retrospectiveMessages = 50
)

// Params tunes one activity cycle.
type Params struct {
	SwipesPerRun      int
	MaxMessagesPerRun int
	MaxAgentsPerRun   int
	BreakupChance     float64
	ContinueChance    float64
	ReplyCooldown     time.Duration
	BreakupGrace      time.Duration
	CandidateSurplus  int
	HistoryLimit      int
	Workers           int
	SoftDeadline      time.Duration
	RepairAnomalies   bool
}

// ParamsFromConfig converts validated activity config.
func ParamsFromConfig(a config.ActivityConfig) Params {
	return Params{
		SwipesPerRun:      a.SwipesPerRun,
		MaxMessagesPerRun: a.MaxMessagesPerRun,
		MaxAgentsPerRun:   a.MaxAgentsPerRun,
		BreakupChance:     a.BreakupChance,
		ContinueChance:    a.ContinueChance,
		ReplyCooldown:     a.ReplyCooldownDuration(),
		BreakupGrace:      a.BreakupGraceDuration(),
		CandidateSurplus:  a.CandidateSurplus,
		HistoryLimit:      a.HistoryLimit,
		Workers:           a.Workers,
		SoftDeadline:      a.SoftDeadlineDuration(),
		RepairAnomalies:   a.RepairAnomalies,
	}
}

// DefaultParams mirrors config.Default().
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Activity)
}

// Recalculator recomputes derived reputation after a cycle.
type Recalculator interface {
	Recalculate(ctx context.Context) (reputation.Report, error)
}

// Engine holds the collaborators of an activity cycle. It is safe for
// concurrent use by the profile pipelines of one run.
type Engine struct {
	store      store.Store
	oracle     oracle.Oracle
	reputation Recalculator
	params     Params
	log        *zap.Logger
	now        func() time.Time
	rand       *lockedRand

	// matchMu serializes the check-then-create of relationships within this process.
	matchMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand replaces the random source behind every probability gate and shuffle.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rand = &lockedRand{r: r} }
}

// New returns an Engine. rep may be nil to skip reputation recalculation.
func New(st store.Store, or oracle.Oracle, rep Recalculator, p Params, opts ...Option) *Engine {
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.CandidateSurplus < 1 {
		p.CandidateSurplus = 1
	}
	e := &Engine{
		store:      st,
		oracle:     or,
		reputation: rep,
		params:     p,
		log:        zap.NewNop(),
		now:        time.Now,
		rand:       &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
