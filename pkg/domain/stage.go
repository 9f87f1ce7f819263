package domain

import "fmt"

// Stage is one of the fixed negotiation stages. The set is closed:
// adding a stage means changing the transition table and the tests
// that enumerate it.
type Stage string

const (
	StageInitial    Stage = "initial"
	StageInquiry    Stage = "inquiry"
	StageHaggling   Stage = "haggling"
	StageDisengaged Stage = "disengaged"
	StageAgreement  Stage = "agreement"
	StageClosure    Stage = "closure"
)

// Stages lists every valid stage, in rough conversational order.
var Stages = []Stage{
	StageInitial,
	StageInquiry,
	StageHaggling,
	StageDisengaged,
	StageAgreement,
	StageClosure,
}

// LegalTransitions is the single source of truth for stage movement.
// Key = current stage, value = stages reachable from it. Staying in
// place is always legal and is not listed here.
//
//	initial    -> inquiry
//	inquiry    -> haggling, disengaged
//	haggling   -> agreement, disengaged, closure
//	disengaged -> haggling (guard: happiness > 40), closure
//	agreement  -> (terminal)
//	closure    -> (terminal)
var LegalTransitions = map[Stage][]Stage{
	StageInitial:    {StageInquiry},
	StageInquiry:    {StageHaggling, StageDisengaged},
	StageHaggling:   {StageAgreement, StageDisengaged, StageClosure},
	StageDisengaged: {StageHaggling, StageClosure},
	StageAgreement:  {},
	StageClosure:    {},
}

// ReEngageHappinessFloor guards the disengaged -> haggling edge: the
// counterpart only comes back to the table if happiness is above it.
const ReEngageHappinessFloor = 40

// ParseStage validates a raw string against the closed stage set.
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if _, ok := LegalTransitions[stage]; !ok {
		return "", fmt.Errorf("unknown stage %q", s)
	}
	return stage, nil
}

// Terminal reports whether no transition may leave this stage.
func (s Stage) Terminal() bool {
	return s == StageAgreement || s == StageClosure
}

// CanReach reports whether moving from s to next is listed in the
// transition table. It does not evaluate guards; see rules.Validate.
func (s Stage) CanReach(next Stage) bool {
	if s == next {
		return true
	}
	for _, t := range LegalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
