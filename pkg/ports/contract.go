package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazaarsim/vyapari/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests verifying that a
// SessionStore implementation adheres to the interface contract.
// Every adapter (memory, redis) must pass it unchanged.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("Create Defaults", func(t *testing.T) {
		s, err := store.Create(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, s.ID)
		assert.Equal(t, domain.DefaultHappiness, s.Happiness)
		assert.Equal(t, domain.StageInitial, s.Stage)
		assert.Equal(t, 0, s.TurnCount)
		assert.Empty(t, s.PriceHistory)
	})

	t.Run("Create Idempotent", func(t *testing.T) {
		first, err := store.Create(ctx, sessionID)
		require.NoError(t, err)

		// Mutate through a turn, then Create again: the mutated record
		// must survive, not be reset.
		first.Happiness = 62
		first.Stage = domain.StageInquiry
		first.TurnCount = 1
		require.NoError(t, store.SaveTurn(ctx, first, TurnRecords{}))

		again, err := store.Create(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 62, again.Happiness)
		assert.Equal(t, domain.StageInquiry, again.Stage)
		assert.Equal(t, 1, again.TurnCount)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("SaveTurn And GraphContext", func(t *testing.T) {
		id := sessionID + "-graph"
		s, err := store.Create(ctx, id)
		require.NoError(t, err)

		now := time.Now().UTC()
		s.Happiness = 55
		s.Stage = domain.StageInquiry
		s.TurnCount = 1
		s.PriceHistory = append(s.PriceHistory, 120)
		records := TurnRecords{
			Turns: []domain.Turn{
				{SessionID: id, Number: 1, Role: domain.RoleInitiator, Snippet: "how much for the brass lamp?", Happiness: 50, Stage: domain.StageInitial, Item: "brass lamp", Timestamp: now},
				{SessionID: id, Number: 1, Role: domain.RoleResponder, Snippet: "for you, one twenty", Happiness: 55, Stage: domain.StageInquiry, Item: "brass lamp", Timestamp: now},
			},
			Transition: &domain.StageTransition{
				SessionID: id, From: domain.StageInitial, To: domain.StageInquiry,
				AtTurn: 1, Happiness: 55, Timestamp: now,
			},
			Items: []domain.Item{{Name: "brass lamp", SessionID: id}},
		}
		require.NoError(t, store.SaveTurn(ctx, s, records))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 55, loaded.Happiness)
		assert.Equal(t, domain.StageInquiry, loaded.Stage)
		assert.Equal(t, 1, loaded.TurnCount)
		assert.Equal(t, []int{120}, loaded.PriceHistory)

		gc, err := store.GraphContext(ctx, id)
		require.NoError(t, err)
		require.Len(t, gc.Turns, 2)
		assert.Equal(t, domain.RoleInitiator, gc.Turns[0].Role)
		require.Len(t, gc.Transitions, 1)
		assert.Equal(t, domain.StageInquiry, gc.Transitions[0].To)
		require.Len(t, gc.Items, 1)
		assert.Equal(t, "brass lamp", gc.Items[0].Name)
		assert.Equal(t, 2, gc.Items[0].Mentions)
		assert.Equal(t, 1, gc.StageDurations[domain.StageInitial])
	})

	t.Run("Turn Ordering", func(t *testing.T) {
		id := sessionID + "-order"
		s, err := store.Create(ctx, id)
		require.NoError(t, err)

		for i := 1; i <= 3; i++ {
			s.TurnCount = i
			err := store.SaveTurn(ctx, s, TurnRecords{
				Turns: []domain.Turn{
					{SessionID: id, Number: i, Role: domain.RoleInitiator, Snippet: "offer", Happiness: 50, Stage: domain.StageHaggling, Timestamp: time.Now().UTC()},
					{SessionID: id, Number: i, Role: domain.RoleResponder, Snippet: "counter", Happiness: 50, Stage: domain.StageHaggling, Timestamp: time.Now().UTC()},
				},
			})
			require.NoError(t, err)
		}

		gc, err := store.GraphContext(ctx, id)
		require.NoError(t, err)
		require.Len(t, gc.Turns, 6)
		for i := 1; i < len(gc.Turns); i++ {
			assert.GreaterOrEqual(t, gc.Turns[i].Number, gc.Turns[i-1].Number, "turns must come back ordered by number")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		id := sessionID + "-del"
		_, err := store.Create(ctx, id)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, id))

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		a := sessionID + "-list-a"
		b := sessionID + "-list-b"
		_, err := store.Create(ctx, a)
		require.NoError(t, err)
		_, err = store.Create(ctx, b)
		require.NoError(t, err)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, a)
		assert.Contains(t, ids, b)
	})
}
