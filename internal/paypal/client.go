// Package paypal is a read-only client for the PayPal REST API, scoped
// to what payment verification needs: a client-credentials exchange and
// an order lookup.
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lumi182/paygate/internal/domain"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	defaultTimeout = 10 * time.Second
)

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewClient(baseURL, clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ClientOption func(*Client)

// WithTimeout bounds each outbound call. Zero or negative values are ignored.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Transaction fetches the order identified by id. Every call
// re-authenticates; access tokens are deliberately not cached.
// Any transport failure, non-2xx response, or unparseable body is
// reported as domain.ErrUpstream.
func (c *Client) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	accessToken, err := c.accessToken(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/checkout/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: build order request: %v", domain.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: fetch order: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return domain.Transaction{}, fmt.Errorf("%w: order lookup status %s", domain.ErrUpstream, resp.Status)
	}

	var body orderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: decode order response: %v", domain.ErrUpstream, err)
	}
	if body.ID == "" || len(body.PurchaseUnits) == 0 {
		return domain.Transaction{}, fmt.Errorf("%w: order response missing purchase unit", domain.ErrUpstream)
	}

	amount := body.PurchaseUnits[0].Amount
	return domain.Transaction{
		ID:       body.ID,
		Status:   domain.TransactionStatus(body.Status),
		Amount:   amount.Value,
		Currency: amount.CurrencyCode,
	}, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", domain.ErrUpstream, err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: exchange credentials: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return "", fmt.Errorf("%w: credential exchange status %s", domain.ErrUpstream, resp.Status)
	}

	var body tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrUpstream, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", domain.ErrUpstream)
	}
	return body.AccessToken, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 1<<20))
}
