package oracle

import (
	"fmt"
	"strings"
	"time"
)

func describePersona(p Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	if p.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", p.Bio)
	}
	if p.Personality != "" {
		fmt.Fprintf(&b, "Personality: %s\n", p.Personality)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(p.Interests, ", "))
	}
	fmt.Fprintf(&b, "Current mood: %s\n", p.Mood)
	if len(p.ConversationStarters) > 0 {
		fmt.Fprintf(&b, "Favorite openers: %s\n", strings.Join(p.ConversationStarters, " | "))
	}
	return b.String()
}

func describeSummary(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", s.Name)
	if s.Bio != "" {
		fmt.Fprintf(&b, "Bio: %s\n", s.Bio)
	}
	if len(s.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(s.Interests, ", "))
	}
	return b.String()
}

func describeHistory(actor, partner string, turns []Turn) string {
	if len(turns) == 0 {
		return "(no messages yet)\n"
	}
	var b strings.Builder
	for _, t := range turns {
		name := partner
		if t.Role == RoleActor {
			name = actor
		}
		fmt.Fprintf(&b, "%s: %s\n", name, t.Content)
	}
	return b.String()
}

func swipePrompt(actor Persona, candidate Summary) string {
	return fmt.Sprintf(`You are playing a dating-app profile. Stay in character.

<YOU>
%s</YOU>

<CANDIDATE>
%s</CANDIDATE>

Decide whether you would swipe right on this candidate.
Return a JSON object: {"swipe_right": true|false}
`, describePersona(actor), describeSummary(candidate))
}

func openingPrompt(actor Persona, partner Summary) string {
	return fmt.Sprintf(`You are playing a dating-app profile. Stay in character.

<YOU>
%s</YOU>

You just matched with:
<MATCH>
%s</MATCH>

Write the first message you send them. Keep it under 300 characters.
Return a JSON object: {"message": "..."}
`, describePersona(actor), describeSummary(partner))
}

func replyPrompt(actor Persona, partnerName string, history []Turn) string {
	return fmt.Sprintf(`You are playing a dating-app profile. Stay in character.

<YOU>
%s</YOU>

<CONVERSATION WITH %s>
%s</CONVERSATION>

Write your next message to %s. Keep it under 300 characters and do not repeat yourself.
Return a JSON object: {"message": "..."}
`, describePersona(actor), partnerName, describeHistory(actor.Name, partnerName, history), partnerName)
}

func breakupPrompt(actor Persona, partner Summary, days float64, history []Turn) string {
	return fmt.Sprintf(`You are playing a dating-app profile. Stay in character.

<YOU>
%s</YOU>

You have been in a relationship with:
<PARTNER>
%s</PARTNER>
for %.1f days.

<RECENT MESSAGES>
%s</RECENT MESSAGES>

Decide whether you want to end this relationship. Most relationships should continue.
Return a JSON object: {"should_break_up": true|false, "reason": "..."}
`, describePersona(actor), describeSummary(partner), days, describeHistory(actor.Name, partner.Name, history))
}

func retrospectivePrompt(req RetrospectiveRequest) string {
	var log strings.Builder
	if len(req.Log) == 0 {
		log.WriteString("(they never spoke)\n")
	}
	for _, l := range req.Log {
		fmt.Fprintf(&log, "%s: %s\n", l.Sender, l.Content)
	}
	return fmt.Sprintf(`Write a short retrospective of a dating-app relationship that just ended.

<INITIATOR>
%s</INITIATOR>

<PARTNER>
%s</PARTNER>

Started: %s
Ended: %s
%s ended it because: %s

<MESSAGES>
%s</MESSAGES>

Return a JSON object with string fields "spark_moment", "peak_moment", "decline_signal",
"fatal_message", "duration_verdict", "compatibility_postmortem" and an integer
"drama_rating" from 1 to 10.
`, describeSummary(req.Initiator), describeSummary(req.Partner),
		req.StartedAt.UTC().Format(time.RFC3339), req.EndedAt.UTC().Format(time.RFC3339),
		req.Initiator.Name, req.Reason, log.String())
}
