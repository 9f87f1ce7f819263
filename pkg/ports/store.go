package ports

import (
	"context"

	"github.com/bazaarsim/vyapari/pkg/domain"
)

// TurnRecords bundles everything one processed exchange appends to a
// session's history. A store must persist the whole bundle together
// with the updated session fields, or nothing at all.
type TurnRecords struct {
	Turns      []domain.Turn
	Transition *domain.StageTransition
	Items      []domain.Item
}

// SessionStore defines the interface for durable session persistence.
//
// Unreachability during Create, Load or SaveTurn is fatal for the
// request: adapters wrap such failures in *domain.StoreError.
// GraphContext failures are soft; callers proceed without context.
type SessionStore interface {
	// Create makes a new session with default state. Creating an ID
	// that already exists is not an error: the existing record is
	// returned unchanged.
	Create(ctx context.Context, sessionID string) (*domain.Session, error)

	// Load retrieves the current session record.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// SaveTurn atomically overwrites the session's mutable fields and
	// appends the turn records produced by the same exchange. A reader
	// never observes the session updated without its records.
	SaveTurn(ctx context.Context, session *domain.Session, records TurnRecords) error

	// GraphContext derives stage durations, happiness trend, item
	// mentions and the transition log from the recorded history.
	GraphContext(ctx context.Context, sessionID string) (*domain.GraphContext, error)

	// Delete removes the session and all its records.
	Delete(ctx context.Context, sessionID string) error

	// List returns known session IDs.
	List(ctx context.Context) ([]string, error)
}
