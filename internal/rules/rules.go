// Package rules is the validation engine: the gateway proposes, this
// package disposes. Everything here is pure, with no store, no gateway
// and no clock, so the full legal/illegal space is enumerable in tests.
package rules

import (
	"fmt"

	"github.com/bazaarsim/vyapari/pkg/domain"
)

// DefaultMaxDelta is the per-turn happiness clamp when config does
// not override it.
const DefaultMaxDelta = 15

// Override records one instance where the engine replaced a proposed
// value, or flagged it. Advisory entries report without rewriting.
type Override struct {
	Field    string `json:"field"`
	Proposed string `json:"proposed"`
	Applied  string `json:"applied"`
	Reason   string `json:"reason"`
	Advisory bool   `json:"advisory,omitempty"`
}

// Result is the corrected state produced from one proposal. All
// values are clamped and safe to persist and return.
type Result struct {
	ReplyText string
	Happiness int
	Stage     domain.Stage
	Mood      domain.Mood
	Price     *int
	Reasoning string
	Overrides []Override
	Terminal  bool
}

// Corrections returns the overrides that actually changed a value,
// excluding advisory entries.
func (r Result) Corrections() []Override {
	var out []Override
	for _, o := range r.Overrides {
		if !o.Advisory {
			out = append(out, o)
		}
	}
	return out
}

// ValidateTransition checks a proposed stage move against the
// transition table.
//
//   - Staying in the same stage is always legal.
//   - Terminal stages cannot be left.
//   - The disengaged -> haggling edge requires prior happiness above
//     the re-engage floor.
//   - Anything absent from the table is rejected: the prior stage is
//     retained and an override recorded.
func ValidateTransition(current, proposed domain.Stage, priorHappiness int) (domain.Stage, []Override) {
	if proposed == current {
		return current, nil
	}

	if current.Terminal() {
		return current, []Override{{
			Field:    "stage",
			Proposed: string(proposed),
			Applied:  string(current),
			Reason:   fmt.Sprintf("cannot leave terminal stage %s", current),
		}}
	}

	if !current.CanReach(proposed) {
		return current, []Override{{
			Field:    "stage",
			Proposed: string(proposed),
			Applied:  string(current),
			Reason:   fmt.Sprintf("illegal transition %s -> %s", current, proposed),
		}}
	}

	if current == domain.StageDisengaged && proposed == domain.StageHaggling &&
		priorHappiness <= domain.ReEngageHappinessFloor {
		return current, []Override{{
			Field:    "stage",
			Proposed: string(proposed),
			Applied:  string(current),
			Reason: fmt.Sprintf("disengaged -> haggling requires happiness > %d, have %d",
				domain.ReEngageHappinessFloor, priorHappiness),
		}}
	}

	return proposed, nil
}

// enforceOfferConsistency applies the minimum happiness drop an offer
// assessment demands. It only tightens: a proposal that already drops
// further is left alone, and it never turns a drop into a rise.
func enforceOfferConsistency(assessment domain.Assessment, prior, proposed int) (int, []Override) {
	minDrop := assessment.MinDrop()
	if minDrop == 0 {
		return proposed, nil
	}

	ceiling := domain.ClampHappiness(prior - minDrop)
	if proposed <= ceiling {
		return proposed, nil
	}

	return ceiling, []Override{{
		Field:    "happiness",
		Proposed: fmt.Sprintf("%d", proposed),
		Applied:  fmt.Sprintf("%d", ceiling),
		Reason: fmt.Sprintf("offer assessed as %q but happiness only dropped %d (min drop %d)",
			assessment, prior-proposed, minDrop),
	}}
}

// clampDelta bounds the happiness change to ±maxDelta around prior,
// then bounds the result to the valid score range.
func clampDelta(prior, proposed, maxDelta int) (int, bool) {
	v := domain.ClampHappiness(proposed)
	delta := v - prior
	clamped := false

	if delta > maxDelta {
		v = prior + maxDelta
		clamped = true
	} else if delta < -maxDelta {
		v = prior - maxDelta
		clamped = true
	}

	return domain.ClampHappiness(v), clamped
}

// checkPriceDirection warns when a quoted price exceeds the last
// recorded one. Pricing discipline is advisory: the price stands.
func checkPriceDirection(prior *domain.Session, price *int) []Override {
	if price == nil {
		return nil
	}
	last, ok := prior.LastPrice()
	if !ok || *price <= last {
		return nil
	}
	return []Override{{
		Field:    "price",
		Proposed: fmt.Sprintf("%d", *price),
		Applied:  fmt.Sprintf("%d", *price),
		Reason:   fmt.Sprintf("price rose from %d to %d; prices should only fall during a negotiation", last, *price),
		Advisory: true,
	}}
}

// Validate runs the full pipeline over one proposal:
//
//  1. stage transition check
//  2. offer-consistency minimum drop
//  3. happiness delta clamp
//  4. price direction (advisory)
//  5. mood derivation from the final happiness
//
// The proposal's own mood is never used.
func Validate(prior *domain.Session, p *domain.Proposal, maxDelta int) Result {
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDelta
	}

	res := Result{
		ReplyText: p.ReplyText,
		Price:     p.Price,
		Reasoning: p.Reasoning,
	}

	stage, overrides := ValidateTransition(prior.Stage, p.Stage, prior.Happiness)
	res.Stage = stage
	res.Overrides = append(res.Overrides, overrides...)

	happiness, offerOverrides := enforceOfferConsistency(p.Assessment, prior.Happiness, p.Happiness)
	res.Overrides = append(res.Overrides, offerOverrides...)

	final, wasClamped := clampDelta(prior.Happiness, happiness, maxDelta)
	if wasClamped {
		res.Overrides = append(res.Overrides, Override{
			Field:    "happiness",
			Proposed: fmt.Sprintf("%d", happiness),
			Applied:  fmt.Sprintf("%d", final),
			Reason:   fmt.Sprintf("delta exceeds ±%d from prior %d", maxDelta, prior.Happiness),
		})
	}
	res.Happiness = final

	res.Overrides = append(res.Overrides, checkPriceDirection(prior, p.Price)...)

	res.Mood = domain.MoodFor(final)
	res.Terminal = res.Stage.Terminal()

	return res
}
