package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"satdice-backend/internal/models"
)

// PotService holds the latest known pot size. The external wallet is the
// source of truth; the balance is never decremented locally, only re-read.
type PotService struct {
	backend PaymentBackend

	mu          sync.RWMutex
	balanceSats int64
	loaded      bool
	broadcaster Broadcaster
}

func NewPotService(backend PaymentBackend) *PotService {
	return &PotService{backend: backend}
}

func (p *PotService) SetBroadcaster(b Broadcaster) {
	p.mu.Lock()
	p.broadcaster = b
	p.mu.Unlock()
}

// Refresh re-reads the wallet balance (msat, floored to sats). On failure the
// previous value is kept and returned alongside the error.
func (p *PotService) Refresh(ctx context.Context) (int64, error) {
	msat, err := p.backend.WalletBalanceMsat(ctx)
	if err != nil {
		p.mu.RLock()
		prev := p.balanceSats
		p.mu.RUnlock()
		return prev, fmt.Errorf("%w: %v", models.ErrTransientQuery, err)
	}

	sats := msat / 1000

	p.mu.Lock()
	changed := !p.loaded || sats != p.balanceSats
	p.balanceSats = sats
	p.loaded = true
	b := p.broadcaster
	p.mu.Unlock()

	if changed && b != nil {
		b.BroadcastPot(sats)
	}
	return sats, nil
}

func (p *PotService) Current() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balanceSats
}

// RunRefresher keeps the pot fresh for the lifetime of the process. Run it in
// its own goroutine; it returns when ctx is cancelled.
func (p *PotService) RunRefresher(ctx context.Context, interval time.Duration) {
	if _, err := p.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial pot refresh failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("pot refresh failed")
			}
		}
	}
}
