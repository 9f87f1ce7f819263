// Package middleware provides SessionStore wrappers. Turn snippets
// hold raw customer speech, so deployments that must not retain
// personal data can scrub it at the persistence boundary instead of
// trusting every caller.
package middleware

import (
	"context"
	"regexp"

	"github.com/bazaarsim/vyapari/pkg/domain"
	"github.com/bazaarsim/vyapari/pkg/ports"
)

// DefaultPIIPatterns match the identifiers most likely to be spoken
// aloud mid-negotiation: email addresses and phone-length digit runs.
var DefaultPIIPatterns = []string{
	`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
	`\+?\d[\d\s\-]{8,}\d`,
}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks matches of the
// given patterns in turn snippets before they reach the store.
// Patterns must compile; this panics otherwise, like regexp.MustCompile.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) SaveTurn(ctx context.Context, session *domain.Session, records ports.TurnRecords) error {
	// Clone the turns so the engine's in-memory copies keep the
	// original text for the remainder of the request.
	cleaned := records
	cleaned.Turns = make([]domain.Turn, len(records.Turns))
	for i, turn := range records.Turns {
		turn.Snippet = m.mask(turn.Snippet)
		cleaned.Turns[i] = turn
	}
	return m.next.SaveTurn(ctx, session, cleaned)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, "***")
	}
	return s
}

func (m *piiMiddleware) Create(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Create(ctx, sessionID)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) GraphContext(ctx context.Context, sessionID string) (*domain.GraphContext, error) {
	return m.next.GraphContext(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
