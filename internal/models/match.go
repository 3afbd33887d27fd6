// internal/models/match.go
package models

// ReasonTag classifies a single scoring reason.
type ReasonTag string

const (
	ReasonPositive ReasonTag = "POSITIVE"
	ReasonWarning  ReasonTag = "WARNING"
	ReasonBlocker  ReasonTag = "BLOCKER"
)

// Reason is one human-readable entry explaining a score contribution.
type Reason struct {
	Tag  ReasonTag `json:"tag"`
	Text string    `json:"text"`
}

// MatchResult is the outcome of scoring one company against one grant.
// Eligible is derived: false iff at least one BLOCKER reason fired. A low
// score without blockers still means "technically qualifies, poor fit".
type MatchResult struct {
	Score    int      `json:"score"`
	Eligible bool     `json:"eligible"`
	Reasons  []Reason `json:"reasons"`
}

// HasBlocker reports whether any reason carries the BLOCKER tag.
func (m *MatchResult) HasBlocker() bool {
	for _, r := range m.Reasons {
		if r.Tag == ReasonBlocker {
			return true
		}
	}
	return false
}

// RankedGrant pairs a grant with its computed scores for ranking output.
type RankedGrant struct {
	GrantID    string   `json:"grantId"`
	Title      string   `json:"title"`
	Agency     string   `json:"agency,omitempty"`
	MatchScore int      `json:"matchScore"`
	Eligible   bool     `json:"eligible"`
	Rating     int      `json:"rating"`
	Reasons    []Reason `json:"reasons,omitempty"`
}
