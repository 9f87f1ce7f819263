// Package governor bounds conversation length and owns the terminal
// lifecycle: wrap-up signaling past a soft threshold, forced closure
// past a hard ceiling, and the one-time summary on entering a terminal
// stage.
package governor

import (
	"log/slog"

	"github.com/bazaarsim/vyapari/internal/rules"
	"github.com/bazaarsim/vyapari/pkg/domain"
)

// Default turn thresholds. The soft limit asks the counterpart to
// start wrapping up; the hard ceiling ends the session outright.
const (
	DefaultSoftLimit = 25
	DefaultHardLimit = 30
)

// Fixed replies used when no generation call is made (or its output is
// discarded).
const (
	forcedCloseReply   = "It is late and I must close the shop. We will finish another day. Namaste."
	agreementDoneReply = "We already have a deal, my friend. Take good care of it!"
	closureDoneReply   = "The shop is closed for you today. Come back another time."
)

// Governor applies turn-count policy around a validated result.
type Governor struct {
	soft   int
	hard   int
	logger *slog.Logger
}

func New(soft, hard int, logger *slog.Logger) *Governor {
	if soft <= 0 {
		soft = DefaultSoftLimit
	}
	if hard <= 0 {
		hard = DefaultHardLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{soft: soft, hard: hard, logger: logger}
}

// WrapUp reports whether prompt material for the upcoming turn should
// carry wrap-up guidance. turnCount is the count before the turn runs.
func (g *Governor) WrapUp(turnCount int) bool {
	return turnCount >= g.soft
}

// TerminalReply returns the fixed short-circuit reply for sessions
// already in a terminal stage, without consulting the generative
// service. ok is false for live sessions.
func (g *Governor) TerminalReply(stage domain.Stage) (string, bool) {
	switch stage {
	case domain.StageAgreement:
		return agreementDoneReply, true
	case domain.StageClosure:
		return closureDoneReply, true
	default:
		return "", false
	}
}

// Outcome is the governed final state of a turn, ready to persist.
type Outcome struct {
	Result  rules.Result
	Turn    int  // ordinal of the turn just taken
	Forced  bool // stage was forced to closure by the hard ceiling
	Summary *domain.Summary
}

// Apply enforces the hard ceiling on a validated result and detects
// first entry into a terminal stage. prior is the session state the
// turn was validated against; it is not mutated.
func (g *Governor) Apply(prior *domain.Session, res rules.Result) Outcome {
	out := Outcome{Result: res, Turn: prior.TurnCount + 1}

	// Past the ceiling the stage is closure no matter what was
	// proposed, even a valid agreement.
	if out.Turn > g.hard && res.Stage != domain.StageClosure {
		out.Forced = true
		out.Result.Stage = domain.StageClosure
		out.Result.Terminal = true
		out.Result.ReplyText = forcedCloseReply
		out.Result.Overrides = append(out.Result.Overrides, rules.Override{
			Field:    "stage",
			Proposed: string(res.Stage),
			Applied:  string(domain.StageClosure),
			Reason:   "turn ceiling exceeded, session closed",
		})
		g.logger.Warn("turn ceiling exceeded, forcing closure",
			"session_id", prior.ID, "turn", out.Turn, "ceiling", g.hard)
	}

	// First entry into a terminal stage emits the summary exactly
	// once; a session already terminal never reaches Apply because
	// the orchestrator short-circuits it.
	if out.Result.Terminal && !prior.Stage.Terminal() {
		out.Summary = &domain.Summary{
			SessionID:  prior.ID,
			Terminal:   out.Result.Stage,
			TurnsTaken: out.Turn,
			Happiness:  out.Result.Happiness,
			FinalPrice: finalPrice(prior, out.Result.Price),
		}
		g.logger.Info("session reached terminal stage",
			"session_id", prior.ID,
			"terminal", out.Result.Stage,
			"turns", out.Turn,
			"happiness", out.Result.Happiness)
	}

	return out
}

// finalPrice prefers the price quoted on the closing turn, falling
// back to the last recorded one.
func finalPrice(prior *domain.Session, quoted *int) *int {
	if quoted != nil {
		return quoted
	}
	if last, ok := prior.LastPrice(); ok {
		return &last
	}
	return nil
}
