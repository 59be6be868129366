package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/model"
	"github.com/rcliao/house-agents/internal/oracle"
	"github.com/rcliao/house-agents/internal/store"
)

// thread is an active relationship as seen by the acting profile.
type thread struct {
	rel     model.Relationship
	partner model.Profile
	recent  []model.Message // oldest first
}

func (t thread) last() *model.Message {
	if len(t.recent) == 0 {
		return nil
	}
	return &t.recent[len(t.recent)-1]
}

// RunConversations spends the per-run message budget on replies first, then
// openers, then unprompted continuations. Only delivered messages count
// against the budget.
func (e *Engine) RunConversations(ctx context.Context, actor model.Profile, res *RunResult) error {
	rels, err := e.store.ActiveRelationships(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("active relationships: %w", err)
	}

	var unread, fresh, rest []thread
	for _, rel := range rels {
		th, err := e.loadThread(ctx, actor.ID, rel)
		if err != nil {
			res.addError(PhaseConversation, err)
			continue
		}
		switch last := th.last(); {
		case last == nil:
			fresh = append(fresh, th)
		case last.SenderID != actor.ID:
			unread = append(unread, th)
		default:
			rest = append(rest, th)
		}
	}

	persona := oracle.PersonaOf(actor)
	budget := e.params.MaxMessagesPerRun
	sent := 0

	for _, th := range unread {
		if sent >= budget {
			return nil
		}
		ok, err := e.reply(ctx, actor, persona, th, false)
		if err != nil {
			e.warnSend(actor, th, "reply", err)
			res.addError(PhaseConversation, err)
			continue
		}
		if ok {
			res.Replies++
			sent++
		}
	}

	for _, th := range fresh {
		if sent >= budget {
			return nil
		}
		ok, err := e.open(ctx, actor, persona, th)
		if err != nil {
			e.warnSend(actor, th, "opener", err)
			res.addError(PhaseConversation, err)
			continue
		}
		if ok {
			res.Openers++
			sent++
		}
	}

	e.rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for _, th := range rest {
		if sent >= budget {
			return nil
		}
		if !passes(e.rand.Float64(), e.params.ContinueChance) {
			continue
		}
		if !mayContinue(actor.ID, th.recent, e.now(), e.params.ReplyCooldown) {
			continue
		}
		ok, err := e.reply(ctx, actor, persona, th, true)
		if err != nil {
			e.warnSend(actor, th, "continuation", err)
			res.addError(PhaseConversation, err)
			continue
		}
		if ok {
			res.Continuations++
			sent++
		}
	}
	return nil
}

func (e *Engine) loadThread(ctx context.Context, actorID string, rel model.Relationship) (thread, error) {
	th := thread{rel: rel}
	partnerID := rel.Pair.Other(actorID)
	p, err := e.store.GetProfile(ctx, partnerID)
	switch {
	case err == nil:
		th.partner = *p
	case errors.Is(err, store.ErrNotFound):
		th.partner = model.Profile{ID: partnerID, Name: unknownName}
	default:
		return th, fmt.Errorf("partner %s: %w", partnerID, err)
	}
	th.recent, err = e.store.History(ctx, rel.ID, recentWindow)
	if err != nil {
		return th, fmt.Errorf("recent messages with %s: %w", th.partner.Name, err)
	}
	return th, nil
}

func (e *Engine) reply(ctx context.Context, actor model.Profile, persona oracle.Persona, th thread, continuation bool) (bool, error) {
	history, err := e.store.History(ctx, th.rel.ID, e.params.HistoryLimit)
	if err != nil {
		return false, fmt.Errorf("history with %s: %w", th.partner.Name, err)
	}
	content, err := e.oracle.Reply(ctx, persona, th.partner.Name, oracle.TurnsFor(actor.ID, history))
	if err != nil {
		return false, fmt.Errorf("reply to %s: %w", th.partner.Name, err)
	}
	return e.deliver(ctx, actor, th, content, continuation)
}

func (e *Engine) open(ctx context.Context, actor model.Profile, persona oracle.Persona, th thread) (bool, error) {
	content, err := e.oracle.OpeningMessage(ctx, persona, oracle.SummaryOf(th.partner))
	if err != nil {
		return false, fmt.Errorf("opener for %s: %w", th.partner.Name, err)
	}
	return e.deliver(ctx, actor, th, content, false)
}

// deliver writes a generated message after re-checking that the relationship
// is still active and, for continuations, the cooldown. The oracle call before
// it may have taken a while. The unanswered limit is enforced by the store in
// the same statement as the insert, so overlapping runs cannot exceed it.
func (e *Engine) deliver(ctx context.Context, actor model.Profile, th thread, content string, continuation bool) (bool, error) {
	rel, err := e.store.GetRelationship(ctx, th.rel.ID)
	if err != nil {
		return false, fmt.Errorf("recheck relationship with %s: %w", th.partner.Name, err)
	}
	if !rel.Active {
		return false, nil
	}
	if continuation {
		recent, err := e.store.History(ctx, th.rel.ID, recentWindow)
		if err != nil {
			return false, fmt.Errorf("recheck messages with %s: %w", th.partner.Name, err)
		}
		if !mayContinue(actor.ID, recent, e.now(), e.params.ReplyCooldown) {
			return false, nil
		}
	}

	_, err = e.store.SendMessage(ctx, store.SendMessageParams{
		RelationshipID: th.rel.ID,
		SenderID:       actor.ID,
		Content:        content,
		At:             e.now(),
		MaxTrailing:    maxUnanswered,
	})
	if errors.Is(err, store.ErrTrailingLimit) {
		e.log.Debug("send absorbed by unanswered limit",
			zap.String("profile", actor.Name), zap.String("partner", th.partner.Name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("send to %s: %w", th.partner.Name, err)
	}
	return true, nil
}

func (e *Engine) warnSend(actor model.Profile, th thread, kind string, err error) {
	e.log.Warn("message not sent",
		zap.String("profile", actor.Name),
		zap.String("partner", th.partner.Name),
		zap.String("kind", kind),
		zap.Error(err))
}

// mayContinue reports whether actorID may send an unprompted message given
// the trailing messages of a conversation, oldest first. The actor never
// sends more than maxUnanswered messages in a row and waits cooldown after
// its own last message.
func mayContinue(actorID string, recent []model.Message, now time.Time, cooldown time.Duration) bool {
	if len(recent) == 0 {
		return false
	}
	last := recent[len(recent)-1]
	if last.SenderID != actorID {
		return true
	}
	if now.Sub(last.CreatedAt) < cooldown {
		return false
	}
	return trailingFrom(actorID, recent) < maxUnanswered
}

func trailingFrom(senderID string, msgs []model.Message) int {
	n := 0
	for i := len(msgs) - 1; i >= 0 && msgs[i].SenderID == senderID; i-- {
		n++
	}
	return n
}
