package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	LNbitsURL        string
	LNbitsInvoiceKey string
	LNbitsAdminKey   string

	JWTSecret string

	EntryFeeSats  int64
	FeeBufferSats int64
	InvoiceMemo   string

	PaymentPollAttempts int
	PaymentPollInitial  time.Duration
	PaymentPollCap      time.Duration
	PayoutPollInterval  time.Duration
	PotRefreshInterval  time.Duration

	// FixedOutcome pins the die to one face for demos and local testing.
	// 0 disables it and the die is random.
	FixedOutcome int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port: getenv("PORT", "8080"),
		Env:  getenv("ENV", "development"),

		LNbitsURL:        getenv("LNBITS_URL", "https://legend.lnbits.com"),
		LNbitsInvoiceKey: os.Getenv("LNBITS_INVOICE_KEY"),
		LNbitsAdminKey:   os.Getenv("LNBITS_ADMIN_KEY"),

		JWTSecret: getenv("JWT_SECRET", "dev-secret-change-me"),

		EntryFeeSats:  getenvInt64("ENTRY_FEE_SATS", 100),
		FeeBufferSats: getenvInt64("FEE_BUFFER_SATS", 10),
		InvoiceMemo:   getenv("INVOICE_MEMO", "satdice: one roll"),

		PaymentPollAttempts: int(getenvInt64("PAYMENT_POLL_ATTEMPTS", 5)),
		PaymentPollInitial:  getenvDuration("PAYMENT_POLL_INITIAL", 3*time.Second),
		PaymentPollCap:      getenvDuration("PAYMENT_POLL_CAP", 30*time.Second),
		PayoutPollInterval:  getenvDuration("PAYOUT_POLL_INTERVAL", 5*time.Second),
		PotRefreshInterval:  getenvDuration("POT_REFRESH_INTERVAL", 60*time.Second),

		FixedOutcome: int(getenvInt64("DICE_FIXED_OUTCOME", 0)),
	}

	if cfg.LNbitsInvoiceKey == "" {
		return nil, fmt.Errorf("LNBITS_INVOICE_KEY is required")
	}
	if cfg.LNbitsAdminKey == "" {
		return nil, fmt.Errorf("LNBITS_ADMIN_KEY is required")
	}
	if cfg.FixedOutcome < 0 || cfg.FixedOutcome > 6 {
		return nil, fmt.Errorf("DICE_FIXED_OUTCOME must be 0 (off) or 1-6, got %d", cfg.FixedOutcome)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
