package lnbits

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to an LNbits instance. The invoice key is enough for creating
// and reading payments and the wallet; withdraw links need the admin key.
type Client struct {
	BaseURL    string
	InvoiceKey string
	AdminKey   string
	http       *http.Client
}

func New(baseURL, invoiceKey, adminKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		InvoiceKey: invoiceKey,
		AdminKey:   adminKey,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type Invoice struct {
	PaymentHash    string `json:"payment_hash"`
	PaymentRequest string `json:"payment_request"`
}

type WithdrawLink struct {
	ID    string `json:"id"`
	LNURL string `json:"lnurl"`
}

func (c *Client) CreateInvoice(ctx context.Context, amountSats int64, memo string) (*Invoice, error) {
	payload := map[string]any{
		"out":    false,
		"amount": amountSats,
		"memo":   memo,
	}
	var inv Invoice
	if err := c.do(ctx, "POST", "/api/v1/payments", c.InvoiceKey, payload, &inv); err != nil {
		return nil, err
	}
	if inv.PaymentHash == "" || inv.PaymentRequest == "" {
		return nil, fmt.Errorf("lnbits returned an incomplete invoice")
	}
	return &inv, nil
}

func (c *Client) PaymentPaid(ctx context.Context, paymentHash string) (bool, error) {
	var out struct {
		Paid bool `json:"paid"`
	}
	if err := c.do(ctx, "GET", "/api/v1/payments/"+paymentHash, c.InvoiceKey, nil, &out); err != nil {
		return false, err
	}
	return out.Paid, nil
}

func (c *Client) WalletBalanceMsat(ctx context.Context) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := c.do(ctx, "GET", "/api/v1/wallet", c.InvoiceKey, nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// CreateWithdrawLink requests a single-use claim link for exactly amountSats.
// wait_time=1 is a backend-enforced floor before the link may be claimed.
func (c *Client) CreateWithdrawLink(ctx context.Context, amountSats int64, title string) (*WithdrawLink, error) {
	payload := map[string]any{
		"title":            title,
		"min_withdrawable": amountSats,
		"max_withdrawable": amountSats,
		"uses":             1,
		"wait_time":        1,
		"is_unique":        true,
	}
	var link WithdrawLink
	if err := c.do(ctx, "POST", "/withdraw/api/v1/links", c.AdminKey, payload, &link); err != nil {
		return nil, err
	}
	if link.ID == "" || link.LNURL == "" {
		return nil, fmt.Errorf("lnbits returned an incomplete withdraw link")
	}
	return &link, nil
}

func (c *Client) WithdrawLinkUsed(ctx context.Context, id string) (bool, error) {
	var out struct {
		Used int `json:"used"`
	}
	if err := c.do(ctx, "GET", "/withdraw/api/v1/links/"+id, c.AdminKey, nil, &out); err != nil {
		return false, err
	}
	return out.Used > 0, nil
}

func (c *Client) do(ctx context.Context, method, path, apiKey string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("lnbits %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
