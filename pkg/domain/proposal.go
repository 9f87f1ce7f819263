package domain

// Assessment is the gateway's categorical judgment of the buyer's
// latest price offer. It drives minimum happiness drops in the rules.
type Assessment string

const (
	AssessInsult    Assessment = "insult"
	AssessLowball   Assessment = "lowball"
	AssessFair      Assessment = "fair"
	AssessGood      Assessment = "good"
	AssessExcellent Assessment = "excellent"
	AssessNone      Assessment = "none"
)

// MinDrop returns the minimum happiness drop this assessment demands.
// Zero means no constraint.
func (a Assessment) MinDrop() int {
	switch a {
	case AssessInsult:
		return 10
	case AssessLowball:
		return 6
	default:
		return 0
	}
}

// Proposal is the untrusted structured suggestion produced by the
// cognition gateway for one turn. Every field is advisory until the
// rules engine has disposed of it.
type Proposal struct {
	ReplyText  string     `json:"reply_text"`
	Happiness  int        `json:"happiness"`
	Stage      Stage      `json:"stage"`
	Mood       Mood       `json:"mood"`
	Price      *int       `json:"price,omitempty"`
	Assessment Assessment `json:"offer_assessment,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`

	// Fallback marks the deterministic safe proposal substituted when
	// the gateway could not produce a parseable one. The rules engine
	// keeps the prior stage and happiness for fallback proposals.
	Fallback bool `json:"-"`
}
