// Package redis implements ports.SessionStore and
// ports.DistributedLocker on Redis. The graph-structured history
// (turns, transitions, items) lives in per-session lists and sets
// alongside the session hash, and every turn is written in a single
// transactional pipeline so readers never observe a half-saved turn.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/ports"
)

const defaultPrefix = "vyapari:session:"

// Store implements ports.SessionStore using Redis.
type Store struct {
	client  *backend.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions and their history.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTimeout bounds each store call. Exceeding it is fatal for the
// request, never retried.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Store) { s.timeout = timeout }
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:  client,
		prefix:  defaultPrefix,
		ttl:     0, // no expiration by default
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

var _ ports.SessionStore = (*Store)(nil)

func (s *Store) key(sessionID string) string      { return s.prefix + sessionID }
func (s *Store) turnsKey(sessionID string) string { return s.prefix + sessionID + ":turns" }
func (s *Store) transKey(sessionID string) string { return s.prefix + sessionID + ":transitions" }
func (s *Store) itemsKey(sessionID string) string { return s.prefix + sessionID + ":items" }
func (s *Store) indexKey() string                 { return s.prefix + "index" }

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Create makes a new session record, or returns the existing one
// unchanged. SETNX keeps concurrent creates from clobbering a live
// session.
func (s *Store) Create(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	sess := domain.NewSession(sessionID)
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, &domain.StoreError{Op: "create", Err: err}
	}

	// SETNX and the index entry land in one transaction so a session
	// can never exist without showing up in List.
	var created *backend.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		created = pipe.SetNX(ctx, s.key(sessionID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  s.indexScore(),
			Member: sessionID,
		})
		return nil
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "create", Err: err}
	}
	if !created.Val() {
		return s.Load(ctx, sessionID)
	}
	return sess, nil
}

// Load retrieves the session record.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, &domain.StoreError{Op: "load", Err: err}
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, &domain.StoreError{Op: "load", Err: fmt.Errorf("unmarshal session: %w", err)}
	}
	return &sess, nil
}

// SaveTurn writes the updated session and the turn's records in one
// transactional pipeline.
func (s *Store) SaveTurn(ctx context.Context, session *domain.Session, records ports.TurnRecords) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return &domain.StoreError{Op: "save_turn", Err: err}
	}

	turnPayloads := make([]any, 0, len(records.Turns))
	for _, turn := range records.Turns {
		b, err := json.Marshal(turn)
		if err != nil {
			return &domain.StoreError{Op: "save_turn", Err: err}
		}
		turnPayloads = append(turnPayloads, b)
	}

	var transPayload []byte
	if records.Transition != nil {
		transPayload, err = json.Marshal(records.Transition)
		if err != nil {
			return &domain.StoreError{Op: "save_turn", Err: err}
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(session.ID), data, s.ttl)
		if len(turnPayloads) > 0 {
			pipe.RPush(ctx, s.turnsKey(session.ID), turnPayloads...)
		}
		if transPayload != nil {
			pipe.RPush(ctx, s.transKey(session.ID), transPayload)
		}
		for _, item := range records.Items {
			pipe.SAdd(ctx, s.itemsKey(session.ID), item.Name)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, s.turnsKey(session.ID), s.ttl)
			pipe.Expire(ctx, s.transKey(session.ID), s.ttl)
			pipe.Expire(ctx, s.itemsKey(session.ID), s.ttl)
		}
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{
			Score:  s.indexScore(),
			Member: session.ID,
		})
		return nil
	})
	if err != nil {
		return &domain.StoreError{Op: "save_turn", Err: err}
	}
	return nil
}

// GraphContext rebuilds the derived history view from the stored
// turns and transitions. Errors here are soft for callers.
func (s *Store) GraphContext(ctx context.Context, sessionID string) (*domain.GraphContext, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	exists, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return nil, domain.ErrSessionNotFound
	}

	rawTurns, err := s.client.LRange(ctx, s.turnsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	turns := make([]domain.Turn, 0, len(rawTurns))
	for _, raw := range rawTurns {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(raw), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	rawTrans, err := s.client.LRange(ctx, s.transKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read transitions: %w", err)
	}
	transitions := make([]domain.StageTransition, 0, len(rawTrans))
	for _, raw := range rawTrans {
		var tr domain.StageTransition
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			return nil, fmt.Errorf("unmarshal transition: %w", err)
		}
		transitions = append(transitions, tr)
	}

	gc := domain.DeriveGraphContext(turns, transitions)
	return &gc, nil
}

// Delete removes the session and all its history.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx,
			s.key(sessionID),
			s.turnsKey(sessionID),
			s.transKey(sessionID),
			s.itemsKey(sessionID))
		pipe.ZRem(ctx, s.indexKey(), sessionID)
		return nil
	})
	if err != nil {
		return &domain.StoreError{Op: "delete", Err: err}
	}
	return nil
}

// List returns known session IDs, lazily pruning expired index
// entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// indexScore is the expiry instant of an index entry. Sessions without
// a TTL get a score far in the future so lazy pruning skips them.
func (s *Store) indexScore() float64 {
	if s.ttl == 0 {
		return 4102444800 // 2100-01-01
	}
	return float64(time.Now().Add(s.ttl).Unix())
}
