package domain

import "time"

// DefaultHappiness is the score a fresh session starts with.
const DefaultHappiness = 50

// SnippetMaxLen bounds the text stored per turn record. Full
// transcripts live with the transcript service, not here.
const SnippetMaxLen = 150

// Roles of a turn. The initiator is the human buyer, the responder
// is the simulated vendor.
const (
	RoleInitiator = "initiator"
	RoleResponder = "responder"
)

// Session is the authoritative per-conversation record. It is mutated
// exactly once per processed turn, by the output of the validation
// rules, and only the orchestrator writes it back.
type Session struct {
	ID           string    `json:"id"`
	Happiness    int       `json:"happiness"`
	Stage        Stage     `json:"stage"`
	TurnCount    int       `json:"turn_count"`
	PriceHistory []int     `json:"price_history,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession creates a session with default initial state.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Happiness: DefaultHappiness,
		Stage:     StageInitial,
		TurnCount: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastPrice returns the most recently recorded price, or false when
// no price has been quoted yet.
func (s *Session) LastPrice() (int, bool) {
	if len(s.PriceHistory) == 0 {
		return 0, false
	}
	return s.PriceHistory[len(s.PriceHistory)-1], true
}

// Turn is one utterance, immutable once written. Ordered per session
// by Number; the initiator and responder halves of the same exchange
// share a Number.
type Turn struct {
	SessionID string    `json:"session_id"`
	Number    int       `json:"number"`
	Role      string    `json:"role"`
	Snippet   string    `json:"snippet"`
	Happiness int       `json:"happiness"`
	Stage     Stage     `json:"stage"`
	Item      string    `json:"item,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Truncate shortens raw utterance text to SnippetMaxLen runes for
// storage as a Turn snippet.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= SnippetMaxLen {
		return text
	}
	return string(runes[:SnippetMaxLen]) + "..."
}

// Item is a named object under discussion, scoped to one session.
// Mention counts are derived by counting Turn references.
type Item struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id"`
}

// StageTransition records one confirmed stage change. Written only
// when the validated stage differs from the prior stage.
type StageTransition struct {
	SessionID string    `json:"session_id"`
	From      Stage     `json:"from"`
	To        Stage     `json:"to"`
	AtTurn    int       `json:"at_turn"`
	Happiness int       `json:"happiness"`
	Forced    bool      `json:"forced,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is emitted once, on first entry into a terminal stage.
type Summary struct {
	SessionID  string `json:"session_id"`
	Terminal   Stage  `json:"terminal"`
	TurnsTaken int    `json:"turns_taken"`
	Happiness  int    `json:"happiness"`
	FinalPrice *int   `json:"final_price,omitempty"`
}
