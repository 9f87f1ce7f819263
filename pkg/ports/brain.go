package ports

import (
	"context"

	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/prompt"
)

// Brain invokes the external generative dialogue service and returns
// a structured proposal for one turn.
//
// Implementations own their resilience policy: call timeout, retries
// with backoff on transient failures, one parse retry with a
// simplified prompt, then a deterministic fallback proposal. Only
// exhausted or non-retryable failures surface, as *domain.BrainError.
type Brain interface {
	Propose(ctx context.Context, material prompt.Material) (*domain.Proposal, error)
}
