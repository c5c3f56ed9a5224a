package paymentsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rentorama/rental-api/internal/gateway"
	"github.com/rentorama/rental-api/pkg/auth"
	"github.com/rentorama/rental-api/pkg/errors"
)

// OrderLookup resolves a gateway token to the authoritative payment status.
// The call captures the order with the gateway on the payment-service side,
// so the answer reflects funds actually captured, not the redirect callback.
type OrderLookup interface {
	LookupOrder(ctx context.Context, token string) (*LookupResult, error)
}

type LookupResult struct {
	ReservationID uuid.UUID      `json:"reservation_id"`
	Status        gateway.Status `json:"status"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type client struct {
	cfg         Config
	httpClient  *http.Client
	credentials auth.CredentialProvider
}

func NewClient(cfg Config, credentials auth.CredentialProvider) OrderLookup {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		credentials: credentials,
	}
}

func (c *client) LookupOrder(ctx context.Context, token string) (*LookupResult, error) {
	bearer, err := c.credentials.Token(ctx)
	if err != nil {
		return nil, errors.Gateway("failed to obtain service credential", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/orders/order/%s", c.cfg.BaseURL, url.PathEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Gateway("failed to build order lookup request", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Gateway("order lookup request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFound("payment order", nil)
	default:
		return nil, errors.Gateway(fmt.Sprintf("order lookup returned %d", resp.StatusCode), nil)
	}

	var envelope struct {
		Success bool         `json:"success"`
		Data    LookupResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Gateway("failed to decode order lookup response", err)
	}
	return &envelope.Data, nil
}
