package genai_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "google.golang.org/genai"

	gateway "github.com/bazaarsim/vyapari/internal/adapters/genai"
	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/prompt"
)

const goodResponse = `{
	"reply_text": "Arre, 100 rupees is already a gift!",
	"happiness": 55,
	"stage": "haggling",
	"mood": "neutral",
	"price": 100,
	"offer_assessment": "lowball",
	"reasoning": "buyer offered 40 for a 120 lamp"
}`

func material() prompt.Material {
	return prompt.Material{
		UserText:  "I'll give you 40.",
		Happiness: 50,
		Stage:     domain.StageHaggling,
		TurnCount: 3,
	}
}

func fastOpts(extra ...gateway.Option) []gateway.Option {
	opts := []gateway.Option{
		gateway.WithTimeout(2 * time.Second),
		gateway.WithBackoffBase(1 * time.Millisecond),
	}
	return append(opts, extra...)
}

func TestPropose_ParsesWellFormedResponse(t *testing.T) {
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		assert.Contains(t, system, "Ramdas")
		assert.Contains(t, user, "I'll give you 40.")
		return goodResponse, nil
	}, fastOpts()...)

	p, err := g.Propose(context.Background(), material())
	require.NoError(t, err)
	assert.Equal(t, "Arre, 100 rupees is already a gift!", p.ReplyText)
	assert.Equal(t, 55, p.Happiness)
	assert.Equal(t, domain.StageHaggling, p.Stage)
	assert.Equal(t, domain.AssessLowball, p.Assessment)
	require.NotNil(t, p.Price)
	assert.Equal(t, 100, *p.Price)
	assert.False(t, p.Fallback)
}

func TestPropose_StripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + goodResponse + "\n```"
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		return fenced, nil
	}, fastOpts()...)

	p, err := g.Propose(context.Background(), material())
	require.NoError(t, err)
	assert.Equal(t, 55, p.Happiness)
}

func TestPropose_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls < 3 {
			return "", sdk.APIError{Code: 503, Message: "overloaded"}
		}
		return goodResponse, nil
	}, fastOpts()...)

	p, err := g.Propose(context.Background(), material())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.False(t, p.Fallback)
}

func TestPropose_RateLimitedExhaustionFallsBack(t *testing.T) {
	calls := 0
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		return "", sdk.APIError{Code: 429, Message: "rate limited"}
	}, fastOpts()...)

	m := material()
	p, err := g.Propose(context.Background(), m)
	require.NoError(t, err, "exhausted transients degrade, they do not fail")
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	assert.True(t, p.Fallback)
	assert.Equal(t, m.Happiness, p.Happiness, "fallback keeps prior happiness")
	assert.Equal(t, m.Stage, p.Stage, "fallback keeps prior stage")
	assert.Contains(t, p.ReplyText, "Ek minute bhai")
}

func TestPropose_TimeoutsFallBackWithStateUnchanged(t *testing.T) {
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		return "", context.DeadlineExceeded
	}, fastOpts()...)

	m := material()
	p, err := g.Propose(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, p.Fallback)
	assert.Equal(t, m.Stage, p.Stage)
	assert.Equal(t, m.Happiness, p.Happiness)
}

func TestPropose_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		return "", sdk.APIError{Code: 401, Message: "invalid api key"}
	}, fastOpts()...)

	_, err := g.Propose(context.Background(), material())
	var brainErr *domain.BrainError
	require.ErrorAs(t, err, &brainErr)
	assert.Equal(t, 1, calls, "4xx must not be retried")
}

func TestPropose_ParseFailureRetriesSimplifiedThenFallsBack(t *testing.T) {
	var prompts []string
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		prompts = append(prompts, user)
		return "this is not json", nil
	}, fastOpts()...)

	m := material()
	p, err := g.Propose(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, p.Fallback)

	require.Len(t, prompts, 2, "one parse retry, no more")
	assert.NotEqual(t, prompts[0], prompts[1], "retry must use the simplified prompt")
}

func TestPropose_ParseFailureThenSimplifiedSucceeds(t *testing.T) {
	calls := 0
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		calls++
		if calls == 1 {
			return `{"reply_text": "hi", "stage": "not-a-stage"}`, nil
		}
		return goodResponse, nil
	}, fastOpts()...)

	p, err := g.Propose(context.Background(), material())
	require.NoError(t, err)
	assert.False(t, p.Fallback)
	assert.Equal(t, 2, calls)
}

func TestPropose_RejectsEmptyReplyText(t *testing.T) {
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		return `{"reply_text": "  ", "happiness": 50, "stage": "haggling"}`, nil
	}, fastOpts()...)

	p, err := g.Propose(context.Background(), material())
	require.NoError(t, err)
	assert.True(t, p.Fallback, "blank reply is a parse failure")
}

func TestPropose_WrapUpGuidanceReachesPrompt(t *testing.T) {
	var captured string
	g := gateway.NewFromFunc(func(ctx context.Context, system, user string) (string, error) {
		captured = system
		return goodResponse, nil
	}, fastOpts()...)

	m := material()
	m.WrapUp = true
	_, err := g.Propose(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, strings.Contains(strings.ToLower(captured), "wrap"),
		"wrap-up flag must surface in the system prompt")
}
