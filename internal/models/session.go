package models

import "time"

type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateGuessSelected   SessionState = "guess_selected"
	StateAwaitingPayment SessionState = "awaiting_payment"
	StateRolling         SessionState = "rolling"
	StateLost            SessionState = "lost"
	StateWinUnclaimed    SessionState = "win_unclaimed"
	StateAwaitingPayout  SessionState = "awaiting_payout"
)

// GameSession is the single mutable session record. It is owned by the game
// engine; everything that leaves the engine is a Snapshot copy.
type GameSession struct {
	ID      string
	OwnerID string
	State   SessionState

	Guess int // 1-6, 0 = unset

	InvoiceRef       string // bolt11 payment request, set together with CorrelationID
	CorrelationID    string // payment hash used to query paid status
	PaymentConfirmed bool

	Outcome int // 1-6, 0 = unset; set exactly once per roll

	PayoutAuthRef  string // lnurl claim reference
	PayoutID       string
	AwaitingPayout bool

	LastError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionSnapshot struct {
	ID               string       `json:"id"`
	State            SessionState `json:"state"`
	Guess            int          `json:"guess,omitempty"`
	InvoiceRef       string       `json:"invoice,omitempty"`
	CorrelationID    string       `json:"payment_hash,omitempty"`
	PaymentConfirmed bool         `json:"payment_confirmed"`
	Outcome          int          `json:"outcome,omitempty"`
	PayoutAuthRef    string       `json:"payout_lnurl,omitempty"`
	AwaitingPayout   bool         `json:"awaiting_payout"`
	LastError        string       `json:"last_error,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (s *GameSession) Snapshot() *SessionSnapshot {
	return &SessionSnapshot{
		ID:               s.ID,
		State:            s.State,
		Guess:            s.Guess,
		InvoiceRef:       s.InvoiceRef,
		CorrelationID:    s.CorrelationID,
		PaymentConfirmed: s.PaymentConfirmed,
		Outcome:          s.Outcome,
		PayoutAuthRef:    s.PayoutAuthRef,
		AwaitingPayout:   s.AwaitingPayout,
		LastError:        s.LastError,
		UpdatedAt:        s.UpdatedAt,
	}
}

// Resolved reports whether the current round has run to a terminal state the
// player can restart from.
func (s *GameSession) Resolved() bool {
	return s.State == StateLost || s.State == StateWinUnclaimed
}

func ValidGuess(n int) bool {
	return n >= 1 && n <= 6
}
