package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"satdice-backend/internal/config"
	"satdice-backend/internal/models"
)

// GameEngine drives one session through
// idle -> guess_selected -> awaiting_payment -> rolling -> lost | awaiting_payout -> idle.
//
// All state lives behind one mutex. Watcher goroutines capture the session ID
// they were started for and re-check it before every mutation, so a poll that
// resolves after a reset is discarded instead of applied to a newer session.
type GameEngine struct {
	cfg     *config.Config
	backend PaymentBackend
	pot     *PotService
	roller  Roller

	mu           sync.Mutex
	session      *models.GameSession
	rollInFlight bool
	broadcaster  Broadcaster

	paymentCancel context.CancelFunc
	payoutCancel  context.CancelFunc
}

func NewGameEngine(cfg *config.Config, backend PaymentBackend, pot *PotService, roller Roller) *GameEngine {
	ge := &GameEngine{
		cfg:     cfg,
		backend: backend,
		pot:     pot,
		roller:  roller,
	}
	ge.session = newSession("")
	return ge
}

func newSession(ownerID string) *models.GameSession {
	now := time.Now()
	return &models.GameSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		State:     models.StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	ge.mu.Lock()
	ge.broadcaster = b
	ge.mu.Unlock()
}

func (ge *GameEngine) Snapshot() *models.SessionSnapshot {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	return ge.session.Snapshot()
}

func (ge *GameEngine) Pot() int64 {
	return ge.pot.Current()
}

// SelectGuess starts a fresh round: commits the player to a number and issues
// the entry invoice. Re-selecting while an earlier invoice is unpaid abandons
// that invoice and its watcher.
func (ge *GameEngine) SelectGuess(ctx context.Context, ownerID string, guess int) (*models.SessionSnapshot, error) {
	if !models.ValidGuess(guess) {
		return nil, models.ErrInvalidGuess
	}

	ge.mu.Lock()
	if err := ge.ownedLocked(ownerID); err != nil {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, err
	}
	if ge.session.State == models.StateRolling || ge.session.State == models.StateAwaitingPayout {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, models.ErrGameInProgress
	}

	ge.cancelPaymentWatcherLocked()

	s := newSession(ownerID)
	s.Guess = guess
	s.State = models.StateGuessSelected
	ge.session = s
	sid := s.ID
	ge.publishLocked()
	ge.mu.Unlock()

	inv, err := ge.backend.CreateInvoice(ctx, ge.cfg.EntryFeeSats, ge.cfg.InvoiceMemo)

	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sid {
		// superseded while the invoice was being issued
		return ge.session.Snapshot(), nil
	}
	if err != nil {
		ge.session.LastError = "could not create invoice, pick a number to try again"
		ge.touchLocked()
		ge.publishLocked()
		return ge.session.Snapshot(), fmt.Errorf("%w: %v", models.ErrIssuance, err)
	}

	ge.session.InvoiceRef = inv.PaymentRequest
	ge.session.CorrelationID = inv.PaymentHash
	ge.session.State = models.StateAwaitingPayment
	ge.touchLocked()

	watchCtx, cancel := context.WithCancel(context.Background())
	ge.paymentCancel = cancel
	go ge.watchPayment(watchCtx, sid, inv.PaymentHash)

	ge.publishLocked()
	return ge.session.Snapshot(), nil
}

// watchPayment checks the invoice immediately, then retries on exponential
// backoff min(initial*2^(n-1), cap) for up to PaymentPollAttempts retries.
// After the last retry it surfaces the timeout and stops; the invoice stays
// payable and CheckPayment covers it from there.
func (ge *GameEngine) watchPayment(ctx context.Context, sessionID, paymentHash string) {
	if ge.checkPaymentOnce(ctx, sessionID, paymentHash) {
		return
	}

	for attempt := 1; attempt <= ge.cfg.PaymentPollAttempts; attempt++ {
		delay := backoffDelay(attempt, ge.cfg.PaymentPollInitial, ge.cfg.PaymentPollCap)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if ge.checkPaymentOnce(ctx, sessionID, paymentHash) {
			return
		}
	}

	ge.markPaymentTimeout(sessionID)
}

// checkPaymentOnce returns true when the watcher should stop, either because
// the payment confirmed or because the watcher was cancelled mid-call.
func (ge *GameEngine) checkPaymentOnce(ctx context.Context, sessionID, paymentHash string) bool {
	paid, err := ge.backend.PaymentPaid(ctx, paymentHash)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		log.Warn().Err(err).Str("payment_hash", paymentHash).Msg("payment status check failed")
		ge.noteError(sessionID, "could not check payment status")
		return false
	}
	if !paid {
		return false
	}
	ge.confirmPayment(sessionID)
	return true
}

func backoffDelay(attempt int, initial, ceiling time.Duration) time.Duration {
	d := initial << (attempt - 1)
	if d <= 0 || d > ceiling {
		return ceiling
	}
	return d
}

// CheckPayment is the manual refresh for invoices the bounded watcher gave up
// on (or for impatient players).
func (ge *GameEngine) CheckPayment(ctx context.Context, ownerID string) (*models.SessionSnapshot, error) {
	ge.mu.Lock()
	if err := ge.ownedLocked(ownerID); err != nil {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, err
	}
	if ge.session.State != models.StateAwaitingPayment {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, models.ErrNoPayment
	}
	sid := ge.session.ID
	hash := ge.session.CorrelationID
	ge.mu.Unlock()

	paid, err := ge.backend.PaymentPaid(ctx, hash)
	if err != nil {
		ge.noteError(sid, "could not check payment status")
		return ge.Snapshot(), fmt.Errorf("%w: %v", models.ErrTransientQuery, err)
	}
	if paid {
		ge.confirmPayment(sid)
	} else {
		ge.noteError(sid, "payment not confirmed yet")
	}
	return ge.Snapshot(), nil
}

// confirmPayment flips the session into rolling and runs the draw. The
// rollInFlight check-then-set under the mutex makes a duplicate confirmation
// or a late watcher callback a no-op rather than a second roll.
func (ge *GameEngine) confirmPayment(sessionID string) {
	ge.mu.Lock()
	if ge.session.ID != sessionID || ge.session.PaymentConfirmed || ge.rollInFlight {
		ge.mu.Unlock()
		return
	}
	if ge.session.State != models.StateAwaitingPayment {
		ge.mu.Unlock()
		return
	}
	ge.rollInFlight = true
	ge.session.PaymentConfirmed = true
	ge.session.State = models.StateRolling
	ge.session.LastError = ""
	ge.cancelPaymentWatcherLocked()
	ge.touchLocked()
	ge.publishLocked()

	outcome := ge.roller.Roll()
	ge.session.Outcome = outcome
	guess := ge.session.Guess
	ge.touchLocked()
	ge.mu.Unlock()

	log.Info().Int("outcome", outcome).Int("guess", guess).Msg("die rolled")

	if !IsWin(outcome, guess) {
		ge.settleLoss(sessionID)
		return
	}
	if err := ge.settleWin(sessionID); err != nil {
		log.Warn().Err(err).Msg("win settlement failed")
	}
}

func (ge *GameEngine) settleLoss(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := ge.pot.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("pot refresh after loss failed")
	}

	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID {
		return
	}
	ge.session.State = models.StateLost
	ge.rollInFlight = false
	ge.touchLocked()
	ge.publishLocked()
}

// settleWin sizes the payout from a pot reading taken strictly after the win
// and issues the single-use withdraw link. Caller must hold rollInFlight.
func (ge *GameEngine) settleWin(sessionID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fresh, err := ge.pot.Refresh(ctx)
	if err != nil {
		ge.failWin(sessionID, "could not read the pot, retry the claim")
		return err
	}

	claimable := fresh - ge.cfg.FeeBufferSats
	if claimable <= 0 {
		ge.failWin(sessionID, models.ErrPotTooLow.Error())
		return models.ErrPotTooLow
	}

	link, err := ge.backend.CreateWithdrawLink(ctx, claimable, "satdice win")

	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID {
		return nil
	}
	if err != nil {
		ge.session.State = models.StateWinUnclaimed
		ge.session.LastError = "could not create payout, retry the claim"
		ge.rollInFlight = false
		ge.touchLocked()
		ge.publishLocked()
		return fmt.Errorf("%w: %v", models.ErrIssuance, err)
	}

	ge.session.PayoutAuthRef = link.LNURL
	ge.session.PayoutID = link.ID
	ge.session.AwaitingPayout = true
	ge.session.State = models.StateAwaitingPayout
	ge.session.LastError = ""
	ge.rollInFlight = false
	ge.touchLocked()

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	ge.payoutCancel = cancelWatch
	go ge.watchPayout(watchCtx, sessionID, link.ID)

	ge.publishLocked()
	log.Info().Int64("claimable_sats", claimable).Str("payout_id", link.ID).Msg("payout issued")
	return nil
}

func (ge *GameEngine) failWin(sessionID, msg string) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID {
		return
	}
	ge.session.State = models.StateWinUnclaimed
	ge.session.LastError = msg
	ge.rollInFlight = false
	ge.touchLocked()
	ge.publishLocked()
}

// RetryPayout re-runs win settlement against a fresh pot reading after a
// failed issuance. A pot-too-low win stays unclaimable; only reset clears it.
func (ge *GameEngine) RetryPayout(ctx context.Context, ownerID string) (*models.SessionSnapshot, error) {
	ge.mu.Lock()
	if err := ge.ownedLocked(ownerID); err != nil {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, err
	}
	if ge.session.State != models.StateWinUnclaimed || !IsWin(ge.session.Outcome, ge.session.Guess) {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, models.ErrNothingToRetry
	}
	if ge.rollInFlight {
		snap := ge.session.Snapshot()
		ge.mu.Unlock()
		return snap, models.ErrGameInProgress
	}
	ge.rollInFlight = true
	sid := ge.session.ID
	ge.mu.Unlock()

	err := ge.settleWin(sid)
	return ge.Snapshot(), err
}

// watchPayout polls the withdraw link on a fixed interval until it is claimed
// or the watcher is cancelled. Query failures keep the ticker going.
func (ge *GameEngine) watchPayout(ctx context.Context, sessionID, payoutID string) {
	ticker := time.NewTicker(ge.cfg.PayoutPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		used, err := ge.backend.WithdrawLinkUsed(ctx, payoutID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("payout_id", payoutID).Msg("payout status check failed")
			continue
		}
		if used {
			ge.completeClaim(sessionID)
			return
		}
	}
}

func (ge *GameEngine) completeClaim(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := ge.pot.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("pot refresh after claim failed")
	}

	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID {
		return
	}
	ge.cancelPayoutWatcherLocked()
	ge.session = newSession("")
	ge.publishLocked()
	log.Info().Msg("payout claimed, session reset")
}

// Reset abandons the current round: watchers are cancelled and anything they
// still have in flight can no longer touch the replacement session.
func (ge *GameEngine) Reset(ctx context.Context, ownerID string) (*models.SessionSnapshot, error) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	if err := ge.ownedLocked(ownerID); err != nil {
		return ge.session.Snapshot(), err
	}

	ge.cancelPaymentWatcherLocked()
	ge.cancelPayoutWatcherLocked()
	ge.rollInFlight = false
	ge.session = newSession("")
	ge.publishLocked()
	return ge.session.Snapshot(), nil
}

// Close stops all watchers; used on shutdown.
func (ge *GameEngine) Close() {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	ge.cancelPaymentWatcherLocked()
	ge.cancelPayoutWatcherLocked()
}

func (ge *GameEngine) ownedLocked(ownerID string) error {
	if ge.session.OwnerID == "" || ge.session.State == models.StateIdle {
		return nil
	}
	if ge.session.OwnerID != ownerID {
		return models.ErrNotSessionOwner
	}
	return nil
}

func (ge *GameEngine) markPaymentTimeout(sessionID string) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID || ge.session.State != models.StateAwaitingPayment {
		return
	}
	ge.session.LastError = models.ErrPaymentTimeout.Error()
	ge.touchLocked()
	ge.publishLocked()
}

func (ge *GameEngine) noteError(sessionID, msg string) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	if ge.session.ID != sessionID {
		return
	}
	ge.session.LastError = msg
	ge.touchLocked()
	ge.publishLocked()
}

func (ge *GameEngine) cancelPaymentWatcherLocked() {
	if ge.paymentCancel != nil {
		ge.paymentCancel()
		ge.paymentCancel = nil
	}
}

func (ge *GameEngine) cancelPayoutWatcherLocked() {
	if ge.payoutCancel != nil {
		ge.payoutCancel()
		ge.payoutCancel = nil
	}
}

func (ge *GameEngine) touchLocked() {
	ge.session.UpdatedAt = time.Now()
}

func (ge *GameEngine) publishLocked() {
	if ge.broadcaster != nil {
		ge.broadcaster.BroadcastSession(ge.session.Snapshot())
	}
}
