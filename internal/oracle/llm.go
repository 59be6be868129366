package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/house-agents/internal/model"
)

// LLMOracle implements Oracle on top of a Generator.
type LLMOracle struct {
	gen     Generator
	timeout time.Duration
}

// NewLLMOracle wraps gen. Each call is bounded by timeout when it is positive.
func NewLLMOracle(gen Generator, timeout time.Duration) *LLMOracle {
	return &LLMOracle{gen: gen, timeout: timeout}
}

var _ Oracle = (*LLMOracle)(nil)

func (o *LLMOracle) DecideSwipe(ctx context.Context, actor Persona, candidate Summary) (bool, error) {
	var out struct {
		SwipeRight bool `json:"swipe_right"`
	}
	if err := o.ask(ctx, swipePrompt(actor, candidate), &out); err != nil {
		return false, fmt.Errorf("decide swipe: %w", err)
	}
	return out.SwipeRight, nil
}

func (o *LLMOracle) OpeningMessage(ctx context.Context, actor Persona, partner Summary) (string, error) {
	msg, err := o.message(ctx, openingPrompt(actor, partner))
	if err != nil {
		return "", fmt.Errorf("opening message: %w", err)
	}
	return msg, nil
}

func (o *LLMOracle) Reply(ctx context.Context, actor Persona, partnerName string, history []Turn) (string, error) {
	msg, err := o.message(ctx, replyPrompt(actor, partnerName, history))
	if err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	return msg, nil
}

func (o *LLMOracle) DecideBreakup(ctx context.Context, actor Persona, partner Summary, days float64, history []Turn) (BreakupDecision, error) {
	var out struct {
		ShouldBreakUp bool   `json:"should_break_up"`
		Reason        string `json:"reason"`
	}
	if err := o.ask(ctx, breakupPrompt(actor, partner, days, history), &out); err != nil {
		return BreakupDecision{}, fmt.Errorf("decide breakup: %w", err)
	}
	reason := strings.TrimSpace(out.Reason)
	if reason == "" {
		reason = DefaultBreakupReason
	}
	return BreakupDecision{ShouldBreakUp: out.ShouldBreakUp, Reason: reason}, nil
}

func (o *LLMOracle) Retrospective(ctx context.Context, req RetrospectiveRequest) (model.Retrospective, error) {
	var out struct {
		SparkMoment             string `json:"spark_moment"`
		PeakMoment              string `json:"peak_moment"`
		DeclineSignal           string `json:"decline_signal"`
		FatalMessage            string `json:"fatal_message"`
		DurationVerdict         string `json:"duration_verdict"`
		CompatibilityPostmortem string `json:"compatibility_postmortem"`
		DramaRating             int    `json:"drama_rating"`
	}
	if err := o.ask(ctx, retrospectivePrompt(req), &out); err != nil {
		return model.Retrospective{}, fmt.Errorf("retrospective: %w", err)
	}
	return model.Retrospective{
		SparkMoment:             out.SparkMoment,
		PeakMoment:              out.PeakMoment,
		DeclineSignal:           out.DeclineSignal,
		FatalMessage:            out.FatalMessage,
		DurationVerdict:         out.DurationVerdict,
		CompatibilityPostmortem: out.CompatibilityPostmortem,
		DramaRating:             clampRating(out.DramaRating),
	}, nil
}

func (o *LLMOracle) message(ctx context.Context, prompt string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := o.ask(ctx, prompt, &out); err != nil {
		return "", err
	}
	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		return "", fmt.Errorf("model returned an empty message")
	}
	return msg, nil
}

func (o *LLMOracle) ask(ctx context.Context, prompt string, out interface{}) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	response, err := o.gen.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	raw, ok := extractJSON(response)
	if !ok {
		return fmt.Errorf("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("malformed model response: %w", err)
	}
	return nil
}

// extractJSON returns the span from the first '{' to the last '}'. Models
// often wrap JSON in prose or code fences.
func extractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func clampRating(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
