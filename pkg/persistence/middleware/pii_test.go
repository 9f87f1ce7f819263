package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarsim/vyapari/internal/adapters/memory"
	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/persistence/middleware"
	"github.com/bazaarsim/vyapari/pkg/ports"
)

func TestPIIMiddleware_MasksSnippets(t *testing.T) {
	store := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(memory.NewStore())
	ctx := context.Background()

	sess, err := store.Create(ctx, "pii")
	require.NoError(t, err)

	sess.TurnCount = 1
	records := ports.TurnRecords{Turns: []domain.Turn{{
		SessionID: "pii",
		Number:    1,
		Role:      domain.RoleInitiator,
		Snippet:   "call me at +91 98765 43210 or buyer@example.com, ok?",
	}}}
	require.NoError(t, store.SaveTurn(ctx, sess, records))

	gc, err := store.GraphContext(ctx, "pii")
	require.NoError(t, err)
	require.Len(t, gc.Turns, 1)
	assert.NotContains(t, gc.Turns[0].Snippet, "98765")
	assert.NotContains(t, gc.Turns[0].Snippet, "example.com")
	assert.Contains(t, gc.Turns[0].Snippet, "***")

	// The caller's copy stays intact.
	assert.Contains(t, records.Turns[0].Snippet, "buyer@example.com")
}

func TestPIIMiddleware_PassesCleanTextThrough(t *testing.T) {
	store := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(memory.NewStore())
	ctx := context.Background()

	sess, err := store.Create(ctx, "clean")
	require.NoError(t, err)

	require.NoError(t, store.SaveTurn(ctx, sess, ports.TurnRecords{Turns: []domain.Turn{{
		SessionID: "clean",
		Number:    1,
		Role:      domain.RoleInitiator,
		Snippet:   "how much for the brass lamp?",
	}}}))

	gc, err := store.GraphContext(ctx, "clean")
	require.NoError(t, err)
	assert.Equal(t, "how much for the brass lamp?", gc.Turns[0].Snippet)
}

func TestPIIMiddleware_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t,
		middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)(memory.NewStore()))
}
