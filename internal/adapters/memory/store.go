// Package memory provides an in-memory ports.SessionStore. It backs
// tests and single-process deployments where durability is not needed.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/ports"
)

type record struct {
	session     domain.Session
	turns       []domain.Turn
	transitions []domain.StageTransition
	items       []domain.Item
}

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]*record
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]*record)}
}

var _ ports.SessionStore = (*Store)(nil)

func (s *Store) Create(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.data[sessionID]; ok {
		sess := rec.session
		return &sess, nil
	}
	sess := domain.NewSession(sessionID)
	s.data[sessionID] = &record{session: *sess}
	return sess, nil
}

func (s *Store) Load(_ context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	// Copy so callers cannot mutate stored state in place.
	sess := rec.session
	sess.PriceHistory = append([]int(nil), rec.session.PriceHistory...)
	return &sess, nil
}

func (s *Store) SaveTurn(_ context.Context, session *domain.Session, records ports.TurnRecords) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[session.ID]
	if !ok {
		rec = &record{}
		s.data[session.ID] = rec
	}
	rec.session = *session
	rec.session.PriceHistory = append([]int(nil), session.PriceHistory...)
	rec.turns = append(rec.turns, records.Turns...)
	if records.Transition != nil {
		rec.transitions = append(rec.transitions, *records.Transition)
	}
	for _, item := range records.Items {
		if !containsItem(rec.items, item.Name) {
			rec.items = append(rec.items, item)
		}
	}
	return nil
}

func (s *Store) GraphContext(_ context.Context, sessionID string) (*domain.GraphContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	turns := append([]domain.Turn(nil), rec.turns...)
	transitions := append([]domain.StageTransition(nil), rec.transitions...)
	gc := domain.DeriveGraphContext(turns, transitions)
	return &gc, nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}

func containsItem(items []domain.Item, name string) bool {
	for _, it := range items {
		if it.Name == name {
			return true
		}
	}
	return false
}
