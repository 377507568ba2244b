package models_test

import (
	"testing"

	"satdice-backend/internal/models"
)

func TestValidGuess(t *testing.T) {
	for guess := 1; guess <= 6; guess++ {
		if !models.ValidGuess(guess) {
			t.Errorf("guess %d should be valid", guess)
		}
	}
	for _, guess := range []int{0, 7, -3, 100} {
		if models.ValidGuess(guess) {
			t.Errorf("guess %d should be invalid", guess)
		}
	}
}

func TestSnapshotCopiesSession(t *testing.T) {
	session := &models.GameSession{
		ID:            "s1",
		State:         models.StateAwaitingPayment,
		Guess:         4,
		InvoiceRef:    "lnbc100n1...",
		CorrelationID: "hash1",
	}

	snap := session.Snapshot()
	if snap.ID != "s1" || snap.Guess != 4 || snap.State != models.StateAwaitingPayment {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}

	// mutating the session afterwards must not show up in the snapshot
	session.Guess = 6
	session.State = models.StateRolling
	if snap.Guess != 4 || snap.State != models.StateAwaitingPayment {
		t.Fatal("snapshot should be a copy, not a view")
	}
}

func TestResolved(t *testing.T) {
	cases := map[models.SessionState]bool{
		models.StateIdle:            false,
		models.StateGuessSelected:   false,
		models.StateAwaitingPayment: false,
		models.StateRolling:         false,
		models.StateLost:            true,
		models.StateWinUnclaimed:    true,
		models.StateAwaitingPayout:  false,
	}
	for state, want := range cases {
		s := &models.GameSession{State: state}
		if got := s.Resolved(); got != want {
			t.Errorf("Resolved() in %s = %v, want %v", state, got, want)
		}
	}
}
