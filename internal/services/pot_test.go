package services

import (
	"context"
	"errors"
	"testing"

	"satdice-backend/internal/models"
)

func TestPotRefreshFloorsMsatToSats(t *testing.T) {
	backend := &fakeBackend{balanceMsat: 123_999}
	pot := NewPotService(backend)

	sats, err := pot.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if sats != 123 {
		t.Fatalf("expected 123 sats, got %d", sats)
	}
	if pot.Current() != 123 {
		t.Fatalf("Current() = %d, want 123", pot.Current())
	}
}

func TestPotRefreshKeepsPreviousValueOnFailure(t *testing.T) {
	backend := &fakeBackend{balanceMsat: 500_000}
	pot := NewPotService(backend)

	if _, err := pot.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	backend.set(func(f *fakeBackend) { f.failWallet = true })

	sats, err := pot.Refresh(context.Background())
	if !errors.Is(err, models.ErrTransientQuery) {
		t.Fatalf("expected ErrTransientQuery, got %v", err)
	}
	if sats != 500 {
		t.Fatalf("failure should return the previous value, got %d", sats)
	}
	if pot.Current() != 500 {
		t.Fatalf("failure must not clobber the cached pot, got %d", pot.Current())
	}
}
