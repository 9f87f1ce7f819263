package governor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarsim/vyapari/internal/governor"
	"github.com/bazaarsim/vyapari/internal/logging"
	"github.com/bazaarsim/vyapari/internal/rules"
	"github.com/bazaarsim/vyapari/pkg/domain"
)

func newGovernor() *governor.Governor {
	return governor.New(25, 30, logging.NewNop())
}

func sessionAt(turns int, stage domain.Stage) *domain.Session {
	s := domain.NewSession("gov-test")
	s.TurnCount = turns
	s.Stage = stage
	s.Happiness = 55
	return s
}

func TestWrapUp(t *testing.T) {
	g := newGovernor()
	assert.False(t, g.WrapUp(0))
	assert.False(t, g.WrapUp(24))
	assert.True(t, g.WrapUp(25))
	assert.True(t, g.WrapUp(29))
}

func TestTerminalReply(t *testing.T) {
	g := newGovernor()

	reply, ok := g.TerminalReply(domain.StageAgreement)
	require.True(t, ok)
	assert.Contains(t, reply, "deal")

	closed, ok := g.TerminalReply(domain.StageClosure)
	require.True(t, ok)
	assert.NotEqual(t, reply, closed, "agreement and closure replies must differ")

	_, ok = g.TerminalReply(domain.StageHaggling)
	assert.False(t, ok)
}

func TestApply_HardCeilingForcesClosure(t *testing.T) {
	g := newGovernor()
	prior := sessionAt(30, domain.StageHaggling) // this request is turn 31

	res := rules.Result{
		ReplyText: "I can go a little lower...",
		Happiness: 55,
		Stage:     domain.StageHaggling,
		Mood:      domain.MoodNeutral,
	}
	out := g.Apply(prior, res)

	assert.Equal(t, 31, out.Turn)
	assert.True(t, out.Forced)
	assert.Equal(t, domain.StageClosure, out.Result.Stage)
	assert.True(t, out.Result.Terminal)
	assert.NotEqual(t, res.ReplyText, out.Result.ReplyText, "forced closure replaces the reply")

	require.NotNil(t, out.Summary, "forced closure is a first terminal entry")
	assert.Equal(t, domain.StageClosure, out.Summary.Terminal)
	assert.Equal(t, 31, out.Summary.TurnsTaken)

	require.Len(t, out.Result.Corrections(), 1)
	assert.Equal(t, "stage", out.Result.Corrections()[0].Field)
}

func TestApply_HardCeilingOverridesAgreement(t *testing.T) {
	g := newGovernor()
	prior := sessionAt(30, domain.StageHaggling)

	// Even a valid deal struck past the ceiling becomes a closure.
	price := 90
	res := rules.Result{
		ReplyText: "Done! It is yours for ninety.",
		Happiness: 80,
		Stage:     domain.StageAgreement,
		Mood:      domain.MoodFriendly,
		Price:     &price,
		Terminal:  true,
	}
	out := g.Apply(prior, res)

	assert.True(t, out.Forced)
	assert.Equal(t, domain.StageClosure, out.Result.Stage)
	assert.NotEqual(t, res.ReplyText, out.Result.ReplyText)

	require.Len(t, out.Result.Corrections(), 1)
	assert.Equal(t, "stage", out.Result.Corrections()[0].Field)
	assert.Equal(t, string(domain.StageAgreement), out.Result.Corrections()[0].Proposed)

	require.NotNil(t, out.Summary)
	assert.Equal(t, domain.StageClosure, out.Summary.Terminal)
}

func TestApply_HardCeilingLeavesClosureAlone(t *testing.T) {
	g := newGovernor()
	prior := sessionAt(30, domain.StageHaggling)

	res := rules.Result{
		ReplyText: "Enough. The shop is closing.",
		Happiness: 30,
		Stage:     domain.StageClosure,
		Mood:      domain.MoodAnnoyed,
		Terminal:  true,
	}
	out := g.Apply(prior, res)

	assert.False(t, out.Forced)
	assert.Equal(t, domain.StageClosure, out.Result.Stage)
	assert.Equal(t, res.ReplyText, out.Result.ReplyText, "a proposed closure keeps its own words")
	assert.Empty(t, out.Result.Corrections())
	require.NotNil(t, out.Summary)
}

func TestApply_UnderCeilingUntouched(t *testing.T) {
	g := newGovernor()
	prior := sessionAt(10, domain.StageHaggling)

	res := rules.Result{ReplyText: "hm", Happiness: 55, Stage: domain.StageHaggling}
	out := g.Apply(prior, res)

	assert.Equal(t, 11, out.Turn)
	assert.False(t, out.Forced)
	assert.Equal(t, res, out.Result)
	assert.Nil(t, out.Summary)
}

func TestApply_SummaryOnFirstTerminalEntry(t *testing.T) {
	g := newGovernor()

	t.Run("Agreement With Quoted Price", func(t *testing.T) {
		prior := sessionAt(12, domain.StageHaggling)
		prior.PriceHistory = []int{100, 90}

		price := 85
		out := g.Apply(prior, rules.Result{
			ReplyText: "done!",
			Happiness: 72,
			Stage:     domain.StageAgreement,
			Price:     &price,
			Terminal:  true,
		})

		require.NotNil(t, out.Summary)
		assert.Equal(t, domain.StageAgreement, out.Summary.Terminal)
		assert.Equal(t, 13, out.Summary.TurnsTaken)
		assert.Equal(t, 72, out.Summary.Happiness)
		require.NotNil(t, out.Summary.FinalPrice)
		assert.Equal(t, 85, *out.Summary.FinalPrice)
	})

	t.Run("Closure Falls Back To Last Price", func(t *testing.T) {
		prior := sessionAt(8, domain.StageDisengaged)
		prior.PriceHistory = []int{120}

		out := g.Apply(prior, rules.Result{
			ReplyText: "enough.",
			Happiness: 15,
			Stage:     domain.StageClosure,
			Terminal:  true,
		})

		require.NotNil(t, out.Summary)
		require.NotNil(t, out.Summary.FinalPrice)
		assert.Equal(t, 120, *out.Summary.FinalPrice)
	})

	t.Run("No Price At All", func(t *testing.T) {
		prior := sessionAt(3, domain.StageInquiry)
		out := g.Apply(prior, rules.Result{
			ReplyText: "goodbye",
			Happiness: 30,
			Stage:     domain.StageClosure,
			Terminal:  true,
		})
		require.NotNil(t, out.Summary)
		assert.Nil(t, out.Summary.FinalPrice)
	})
}
