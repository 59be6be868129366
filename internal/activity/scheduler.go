package activity

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/store"
)

// RunActivityCycle runs one activity cycle over the house profiles and
// returns what happened. It never fails as a whole: problems are collected
// into the summary's Errors, prefixed with the profile name when they belong
// to one profile.
//
// Profiles are processed by a bounded pool of workers. Once the soft
// deadline passes (or ctx is done) no further profiles are started; the
// ones in flight finish and the rest are reported as skipped.
func (e *Engine) RunActivityCycle(ctx context.Context) *RunSummary {
	sum := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
		Errors:    []string{},
	}
	log := e.log.With(zap.String("run", sum.RunID))
	log.Info("activity cycle started")

	var deadline time.Time
	if e.params.SoftDeadline > 0 {
		deadline = sum.StartedAt.Add(e.params.SoftDeadline)
	}

	if e.params.RepairAnomalies {
		closed, err := e.store.RepairMonogamy(ctx, e.now())
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("repair: %v", err))
		} else if len(closed) > 0 {
			sum.RepairedRelationships = len(closed)
			log.Warn("closed duplicate active relationships", zap.Int("count", len(closed)))
		}
	}

	profiles, err := e.selectProfiles(ctx, sum)
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("select profiles: %v", err))
		log.Error("select profiles", zap.Error(err))
	}

	// The stop condition is checked again once a worker slot is held: g.Go
	// blocks while all workers are busy, and the deadline may pass meanwhile.
	results := make([]RunResult, len(profiles))
	ran := make([]bool, len(profiles))
	g := new(errgroup.Group)
	g.SetLimit(e.params.Workers)
	for i, p := range profiles {
		if e.stopStarting(ctx, deadline) {
			break
		}
		i, p := i, p
		g.Go(func() error {
			if e.stopStarting(ctx, deadline) {
				return nil
			}
			ran[i] = true
			results[i] = e.runProfile(ctx, p)
			return nil
		})
	}
	g.Wait()

	sum.Results = make([]RunResult, 0, len(profiles))
	for i, p := range profiles {
		if ran[i] {
			sum.Results = append(sum.Results, results[i])
		} else {
			sum.Skipped = append(sum.Skipped, p.Name)
		}
	}
	if len(sum.Skipped) > 0 {
		log.Warn("soft deadline reached", zap.Int("skipped", len(sum.Skipped)))
	}
	sum.tally()

	if e.reputation != nil {
		report, err := e.reputation.Recalculate(ctx)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("reputation: %v", err))
		}
		for _, f := range report.Failures {
			sum.Errors = append(sum.Errors, fmt.Sprintf("reputation: %s", f))
		}
	}

	sum.FinishedAt = e.now()
	log.Info("activity cycle finished",
		zap.Int("profiles", len(sum.Results)),
		zap.Int("swipes", sum.TotalSwipes),
		zap.Int("messages", sum.Messages.Total),
		zap.Int("matches", sum.RelationshipsCreated),
		zap.Int("breakups", sum.RelationshipsEnded),
		zap.Int("errors", len(sum.Errors)))
	return sum
}

// stopStarting reports whether no further pipelines may start.
func (e *Engine) stopStarting(ctx context.Context, deadline time.Time) bool {
	return ctx.Err() != nil || (!deadline.IsZero() && !e.now().Before(deadline))
}

// runProfile takes one profile through breakup, swipe and conversation. A
// failed phase is recorded and the next phase still runs. A panic is
// recovered and recorded against this profile only.
func (e *Engine) runProfile(ctx context.Context, p model.Profile) (res RunResult) {
	res = RunResult{ProfileID: p.ID, ProfileName: p.Name}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("profile pipeline panicked",
				zap.String("profile", p.Name), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			res.Errors = append(res.Errors, fmt.Sprintf("panic: %v", r))
		}
	}()

	phases := []struct {
		name Phase
		run  func(context.Context, model.Profile, *RunResult) error
	}{
		{PhaseBreakup, e.RunBreakup},
		{PhaseSwipe, e.RunSwipes},
		{PhaseConversation, e.RunConversations},
	}
	for _, ph := range phases {
		if err := ph.run(ctx, p, &res); err != nil {
			e.log.Warn("phase failed", zap.String("profile", p.Name), zap.String("phase", string(ph.name)), zap.Error(err))
			res.addError(ph.name, err)
		}
	}
	return res
}

type rankedProfile struct {
	profile model.Profile
	unread  bool
	pending int
	key     float64
}

// selectProfiles ranks house profiles by who has something waiting for them
// and keeps the top MaxAgentsPerRun. If the priority signals cannot be read
// the error is noted and profiles are ranked randomly.
func (e *Engine) selectProfiles(ctx context.Context, sum *RunSummary) ([]model.Profile, error) {
	all, err := e.store.ListProfiles(ctx, store.ListProfilesParams{HouseOnly: true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(all))
	for i, p := range all {
		ids[i] = p.ID
	}

	unread, err := e.store.AwaitingReply(ctx, ids)
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("unread messages: %v", err))
		unread = nil
	}
	pending, err := e.store.PendingLikeCounts(ctx, ids)
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("pending likes: %v", err))
		pending = nil
	}

	ranked := make([]rankedProfile, len(all))
	for i, p := range all {
		ranked[i] = rankedProfile{profile: p, unread: unread[p.ID], pending: pending[p.ID], key: e.rand.Float64()}
	}
	return topProfiles(ranked, e.params.MaxAgentsPerRun), nil
}

// topProfiles sorts by unread flag, pending likes, then random key, all
// descending, and returns the first n profiles.
func topProfiles(ranked []rankedProfile, n int) []model.Profile {
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.unread != b.unread {
			return a.unread
		}
		if a.pending != b.pending {
			return a.pending > b.pending
		}
		return a.key > b.key
	})
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]model.Profile, len(ranked))
	for i, r := range ranked {
		out[i] = r.profile
	}
	return out
}
