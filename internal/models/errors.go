package models

import "errors"

var (
	// ErrTransientQuery: a backend status call failed. Reported, state does
	// not advance, safe to retry on the next tick.
	ErrTransientQuery = errors.New("backend query failed")

	// ErrIssuance: an invoice or withdraw link could not be created. Requires
	// an explicit user retry.
	ErrIssuance = errors.New("issuance failed")

	// ErrPaymentTimeout: payment not observed within the bounded poll
	// attempts. Non-fatal, the player may still be paying.
	ErrPaymentTimeout = errors.New("payment is taking longer than expected")

	// ErrPotTooLow: the pot minus the fee buffer left nothing to claim.
	// Terminal for that win, no retry can fix it.
	ErrPotTooLow = errors.New("pot is too low to pay out")

	ErrInvalidGuess    = errors.New("guess must be between 1 and 6")
	ErrGameInProgress  = errors.New("a roll is already in progress")
	ErrNotSessionOwner = errors.New("session belongs to another player")
	ErrNoPayment       = errors.New("no payment awaiting confirmation")
	ErrNothingToRetry  = errors.New("no unclaimed win to retry")
)
