// Package engine orchestrates one negotiation turn: load state under
// the session lock, consult the brain, validate and govern the
// proposal, persist everything atomically, answer. Only the engine
// writes session state.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarsim/vyapari/internal/governor"
	"github.com/bazaarsim/vyapari/internal/logging"
	"github.com/bazaarsim/vyapari/internal/observability"
	"github.com/bazaarsim/vyapari/internal/rules"
	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/ports"
	"github.com/bazaarsim/vyapari/pkg/prompt"
	"github.com/bazaarsim/vyapari/pkg/session"
)

// Request is one customer utterance plus its surrounding context.
// HistoryText and Supplementary may be empty; Scene fields are
// advisory hints only.
type Request struct {
	SessionID     string         `json:"session_id"`
	UserText      string         `json:"user_text"`
	HistoryText   string         `json:"history_text,omitempty"`
	Supplementary string         `json:"supplementary_context,omitempty"`
	Scene         map[string]any `json:"scene_context,omitempty"`
}

// Response is the validated outcome of one turn.
type Response struct {
	ReplyText string       `json:"reply_text"`
	Happiness int          `json:"happiness"`
	Stage     domain.Stage `json:"stage"`
	Price     *int         `json:"price,omitempty"`
	Mood      domain.Mood  `json:"mood"`
}

// Engine wires the session manager, brain, rules and governor into
// the turn pipeline.
type Engine struct {
	sessions *session.Manager
	brain    ports.Brain
	governor *governor.Governor
	maxDelta int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

type Option func(*Engine)

// WithMaxDelta overrides the per-turn happiness delta bound.
func WithMaxDelta(maxDelta int) Option {
	return func(e *Engine) { e.maxDelta = maxDelta }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

func New(sessions *session.Manager, brain ports.Brain, gov *governor.Governor, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		brain:    brain,
		governor: gov,
		maxDelta: rules.DefaultMaxDelta,
		logger:   logging.NewNop(),
		metrics:  observability.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one turn to completion. Any error is either a
// *domain.BrainError or a *domain.StoreError; validation problems are
// corrected, not surfaced.
func (e *Engine) Process(ctx context.Context, req Request) (*Response, error) {
	logger := e.logger.With(
		"request_id", uuid.NewString(),
		"session_id", req.SessionID,
	)

	var resp *Response
	err := e.sessions.WithLock(ctx, req.SessionID, func(ctx context.Context) error {
		var err error
		resp, err = e.processLocked(ctx, logger, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (e *Engine) processLocked(ctx context.Context, logger *slog.Logger, req Request) (*Response, error) {
	sess, err := e.sessions.LoadOrCreate(ctx, req.SessionID)
	if err != nil {
		e.countStoreFailure(err)
		return nil, err
	}

	// Terminal sessions answer with a fixed line; the brain is never
	// consulted again and nothing is persisted.
	if reply, done := e.governor.TerminalReply(sess.Stage); done {
		logger.Info("terminal session short-circuit", "stage", sess.Stage)
		price := lastPricePtr(sess)
		return &Response{
			ReplyText: reply,
			Happiness: sess.Happiness,
			Stage:     sess.Stage,
			Price:     price,
			Mood:      domain.MoodFor(sess.Happiness),
		}, nil
	}

	material := e.buildMaterial(ctx, logger, sess, req)

	start := time.Now()
	proposal, err := e.brain.Propose(ctx, material)
	e.metrics.ObserveBrain(start)
	if err != nil {
		return nil, err
	}
	if proposal.Fallback {
		e.metrics.FallbacksTotal.Inc()
	}

	result := rules.Validate(sess, proposal, e.maxDelta)
	out := e.governor.Apply(sess, result)

	for _, ov := range out.Result.Overrides {
		e.metrics.OverridesTotal.WithLabelValues(ov.Field).Inc()
		logger.Warn("proposal overridden",
			"field", ov.Field,
			"proposed", ov.Proposed,
			"applied", ov.Applied,
			"reason", ov.Reason,
			"advisory", ov.Advisory,
		)
	}

	if err := e.persistTurn(ctx, sess, req, out); err != nil {
		e.countStoreFailure(err)
		return nil, err
	}

	e.metrics.TurnsTotal.WithLabelValues(string(out.Result.Stage)).Inc()
	if out.Summary != nil {
		e.metrics.SummariesTotal.WithLabelValues(string(out.Summary.Terminal)).Inc()
	}

	logger.Info("turn processed",
		"turn", out.Turn,
		"stage", out.Result.Stage,
		"happiness", out.Result.Happiness,
		"overrides", len(out.Result.Overrides),
		"forced", out.Forced,
	)

	return &Response{
		ReplyText: out.Result.ReplyText,
		Happiness: out.Result.Happiness,
		Stage:     out.Result.Stage,
		Price:     out.Result.Price,
		Mood:      out.Result.Mood,
	}, nil
}

// buildMaterial assembles the prompt inputs. Graph context and scene
// hints are both best-effort: failures degrade to an emptier prompt,
// never to a failed turn.
func (e *Engine) buildMaterial(ctx context.Context, logger *slog.Logger, sess *domain.Session, req Request) prompt.Material {
	material := prompt.Material{
		UserText:      req.UserText,
		HistoryBlock:  req.HistoryText,
		Supplementary: req.Supplementary,
		Happiness:     sess.Happiness,
		Stage:         sess.Stage,
		TurnCount:     sess.TurnCount,
		LastPrice:     lastPricePtr(sess),
		WrapUp:        e.governor.WrapUp(sess.TurnCount),
	}

	if gc, err := e.sessions.Store().GraphContext(ctx, sess.ID); err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			logger.Warn("graph context unavailable, proceeding without", "error", err)
		}
	} else {
		material.GraphBlock = prompt.BuildGraphBlock(gc, sess.PriceHistory)
	}

	if len(req.Scene) > 0 {
		scene, err := domain.DecodeSceneContext(req.Scene)
		if err != nil {
			logger.Warn("scene context ignored", "error", err)
		} else {
			material.Scene = scene
		}
	}

	return material
}

func (e *Engine) persistTurn(ctx context.Context, sess *domain.Session, req Request, out governor.Outcome) error {
	now := time.Now().UTC()
	item := ""
	if len(req.Scene) > 0 {
		if scene, err := domain.DecodeSceneContext(req.Scene); err == nil {
			item = scene.HeldItem()
		}
	}

	records := ports.TurnRecords{
		Turns: []domain.Turn{
			{
				SessionID: sess.ID,
				Number:    out.Turn,
				Role:      domain.RoleInitiator,
				Snippet:   domain.Truncate(req.UserText),
				Happiness: sess.Happiness,
				Stage:     sess.Stage,
				Item:      item,
				Timestamp: now,
			},
			{
				SessionID: sess.ID,
				Number:    out.Turn,
				Role:      domain.RoleResponder,
				Snippet:   domain.Truncate(out.Result.ReplyText),
				Happiness: out.Result.Happiness,
				Stage:     out.Result.Stage,
				Item:      item,
				Timestamp: now,
			},
		},
	}
	if out.Result.Stage != sess.Stage {
		records.Transition = &domain.StageTransition{
			SessionID: sess.ID,
			From:      sess.Stage,
			To:        out.Result.Stage,
			AtTurn:    out.Turn,
			Happiness: out.Result.Happiness,
			Forced:    out.Forced,
			Timestamp: now,
		}
	}
	if item != "" {
		records.Items = []domain.Item{{Name: item, SessionID: sess.ID}}
	}

	sess.Happiness = out.Result.Happiness
	sess.Stage = out.Result.Stage
	sess.TurnCount = out.Turn
	if out.Result.Price != nil {
		sess.PriceHistory = append(sess.PriceHistory, *out.Result.Price)
	}
	sess.UpdatedAt = now

	return e.sessions.Store().SaveTurn(ctx, sess, records)
}

func (e *Engine) countStoreFailure(err error) {
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		e.metrics.StoreFailures.WithLabelValues(storeErr.Op).Inc()
	}
}

func lastPricePtr(sess *domain.Session) *int {
	if last, ok := sess.LastPrice(); ok {
		return &last
	}
	return nil
}
