package model

import "time"

// EndReasonLegacyCleanup marks relationships ended by monogamy repair rather
// than by either party. These are not breakups.
const EndReasonLegacyCleanup = "monogamy enforcement - legacy cleanup"

// Pair is an unordered pair of profile IDs stored in canonical order (A < B).
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPair returns the canonical pair for x and y.
func NewPair(x, y string) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Has reports whether id is one side of the pair.
func (p Pair) Has(id string) bool {
	return p.A == id || p.B == id
}

// Other returns the side of the pair that is not id.
func (p Pair) Other(id string) string {
	if p.A == id {
		return p.B
	}
	return p.A
}

// Relationship is a match between two profiles. At most one active
// relationship may contain any given profile.
type Relationship struct {
	ID        string     `json:"id"`
	Pair      Pair       `json:"pair"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	EndReason string     `json:"end_reason,omitempty"`
	EndedBy   string     `json:"ended_by,omitempty"`
}

// IsLegacyCleanup reports whether the relationship was closed by monogamy repair.
func (r Relationship) IsLegacyCleanup() bool {
	return r.EndReason == EndReasonLegacyCleanup
}

// Partner describes the other side of a profile's current relationship.
type Partner struct {
	RelationshipID string    `json:"relationship_id"`
	PartnerID      string    `json:"partner_id"`
	PartnerName    string    `json:"partner_name"`
	StartedAt      time.Time `json:"started_at"`
}

// Retrospective is the narrative summary written once after a breakup.
type Retrospective struct {
	ID                      string    `json:"id"`
	RelationshipID          string    `json:"relationship_id"`
	SparkMoment             string    `json:"spark_moment"`
	PeakMoment              string    `json:"peak_moment"`
	DeclineSignal           string    `json:"decline_signal"`
	FatalMessage            string    `json:"fatal_message"`
	DurationVerdict         string    `json:"duration_verdict"`
	CompatibilityPostmortem string    `json:"compatibility_postmortem"`
	DramaRating             int       `json:"drama_rating"`
	CreatedAt               time.Time `json:"created_at"`
}
