package services

import (
	"context"

	"satdice-backend/internal/lnbits"
)

// PaymentBackend is the slice of the LNbits API the game needs. Tests swap in
// a fake; production wires *lnbits.Client.
type PaymentBackend interface {
	CreateInvoice(ctx context.Context, amountSats int64, memo string) (*lnbits.Invoice, error)
	PaymentPaid(ctx context.Context, paymentHash string) (bool, error)
	WalletBalanceMsat(ctx context.Context) (int64, error)
	CreateWithdrawLink(ctx context.Context, amountSats int64, title string) (*lnbits.WithdrawLink, error)
	WithdrawLinkUsed(ctx context.Context, id string) (bool, error)
}
