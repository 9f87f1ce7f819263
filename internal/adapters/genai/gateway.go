// Package genai implements ports.Brain on Google's Gemini API with
// JSON mode, bounded retries and an in-character fallback. A caller
// never sees a parse error or a transient outage: those degrade to the
// fallback proposal. Only non-retryable API failures surface, wrapped
// in *domain.BrainError.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdk "google.golang.org/genai"

	"github.com/bazaarsim/vyapari/internal/logging"
	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/ports"
	"github.com/bazaarsim/vyapari/pkg/prompt"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoffBase = 1 * time.Second
)

// fallbackReply keeps the vendor in character while the model is
// unreachable.
const fallbackReply = "Ek minute bhai, zara ruko... haan, bol raha tha kya?"

// GenerateFunc issues one generation call and returns the raw model
// output. Split out so tests can stub the network.
type GenerateFunc func(ctx context.Context, system, user string) (string, error)

// Gateway implements ports.Brain.
type Gateway struct {
	generate    GenerateFunc
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
}

type Option func(*Gateway)

// WithTimeout bounds one whole Propose call, retries included.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) { g.timeout = timeout }
}

// WithMaxRetries sets how many retries follow the initial attempt.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) { g.maxRetries = n }
}

// WithBackoffBase sets the first retry delay; each further retry
// doubles it.
func WithBackoffBase(d time.Duration) Option {
	return func(g *Gateway) { g.backoffBase = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a gateway backed by the Gemini API.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := sdk.NewClient(ctx, &sdk.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}

	generate := func(ctx context.Context, system, user string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model,
			sdk.Text(user),
			&sdk.GenerateContentConfig{
				SystemInstruction: sdk.NewContentFromText(system, sdk.RoleUser),
				ResponseMIMEType:  "application/json",
				Temperature:       sdk.Ptr[float32](0.7),
			})
		if err != nil {
			return "", err
		}
		text := resp.Text()
		if text == "" {
			return "", errors.New("empty model response")
		}
		return text, nil
	}

	return NewFromFunc(generate, opts...), nil
}

// NewFromFunc creates a gateway on top of an arbitrary generation
// function.
func NewFromFunc(generate GenerateFunc, opts ...Option) *Gateway {
	g := &Gateway{
		generate:    generate,
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ ports.Brain = (*Gateway)(nil)

// Propose asks the model for the vendor's next move.
//
// Transient failures (timeout, 429, 5xx) are retried with exponential
// backoff; a malformed response earns one retry with a simplified
// prompt. When attempts run out the fixed in-character fallback is
// returned, carrying the prior stage and happiness so downstream
// validation leaves the session state untouched.
func (g *Gateway) Propose(ctx context.Context, material prompt.Material) (*domain.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := prompt.BuildSystem(material)
	user := prompt.BuildUser(material)

	var lastErr error
	simplified := false

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.backoffBase << uint(attempt-1) // 1s, 2s
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = g.maxRetries // deadline hit, stop retrying
				continue
			}
		}

		raw, err := g.generate(ctx, system, user)
		if err != nil {
			if !retryable(err) {
				return nil, &domain.BrainError{Err: err}
			}
			lastErr = err
			g.logger.Warn("generation transient failure",
				"attempt", attempt+1, "error", err)
			continue
		}

		proposal, err := parseProposal(raw)
		if err != nil {
			lastErr = err
			if !simplified {
				// One shot with a stripped-down prompt before giving up.
				simplified = true
				user = prompt.BuildSimplified(material)
				g.logger.Warn("proposal parse failed, simplifying prompt",
					"attempt", attempt+1, "error", err)
				continue
			}
			break
		}
		return proposal, nil
	}

	g.logger.Error("generation attempts exhausted, using fallback",
		"error", lastErr, "prompt_version", prompt.Version)
	return fallbackProposal(material), nil
}

// retryable reports whether err is a transient condition worth another
// attempt. Client-side errors (auth, bad request) are not.
func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr sdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Unknown network-level failures get the benefit of the doubt.
	var brainErr *domain.BrainError
	return !errors.As(err, &brainErr)
}

// wireProposal is the JSON shape the model is instructed to emit.
type wireProposal struct {
	ReplyText       string `json:"reply_text"`
	Happiness       int    `json:"happiness"`
	Stage           string `json:"stage"`
	Mood            string `json:"mood"`
	Price           *int   `json:"price"`
	OfferAssessment string `json:"offer_assessment"`
	Reasoning       string `json:"reasoning"`
}

func parseProposal(raw string) (*domain.Proposal, error) {
	cleaned := stripFences(raw)

	var wire wireProposal
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return nil, fmt.Errorf("unmarshal proposal: %w", err)
	}
	if strings.TrimSpace(wire.ReplyText) == "" {
		return nil, errors.New("proposal missing reply_text")
	}
	stage, err := domain.ParseStage(wire.Stage)
	if err != nil {
		return nil, fmt.Errorf("proposal stage: %w", err)
	}

	return &domain.Proposal{
		ReplyText:  wire.ReplyText,
		Happiness:  wire.Happiness,
		Stage:      stage,
		Mood:       domain.Mood(wire.Mood),
		Price:      wire.Price,
		Assessment: domain.Assessment(wire.OfferAssessment),
		Reasoning:  wire.Reasoning,
	}, nil
}

// stripFences removes markdown code fences some models add despite
// JSON mode.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// fallbackProposal echoes the prior state so validation passes it
// through unchanged.
func fallbackProposal(material prompt.Material) *domain.Proposal {
	return &domain.Proposal{
		ReplyText: fallbackReply,
		Happiness: material.Happiness,
		Stage:     material.Stage,
		Mood:      domain.MoodFor(material.Happiness),
		Reasoning: "model unavailable after retries, safe in-character response",
		Fallback:  true,
	}
}
