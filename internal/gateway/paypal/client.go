package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/rentorama/rental-api/internal/gateway"
	"github.com/rentorama/rental-api/pkg/circuitbreaker"
	"github.com/rentorama/rental-api/pkg/errors"
)

const accessTokenKey = "paypal_access_token"

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the PayPal orders API. Access tokens are cached until
// shortly before expiry; every request carries a bounded timeout so a hung
// gateway surfaces as a retryable gateway error instead of a stuck consumer.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *gocache.Cache
	cb         *circuitbreaker.CircuitBreaker
	logger     *zerolog.Logger
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     gocache.New(gocache.NoExpiration, 5*time.Minute),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "paypal",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if token, found := c.tokens.Get(accessTokenKey); found {
		return token.(string), nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Gateway("failed to build token request", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Gateway("gateway token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Gateway(fmt.Sprintf("gateway token request returned %d", resp.StatusCode), nil)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", errors.Gateway("failed to decode token response", err)
	}

	// Refresh a minute early so an in-flight call never carries a token
	// that expires mid-request.
	ttl := time.Duration(tr.ExpiresIn)*time.Second - time.Minute
	if ttl <= 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}
	c.tokens.Set(accessTokenKey, tr.AccessToken, ttl)

	return tr.AccessToken, nil
}

func (c *Client) CreateOrder(ctx context.Context, amount float64) (*gateway.Order, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": "EUR",
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}

	var or orderResponse
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &or); err != nil {
		return nil, err
	}

	order := &gateway.Order{ExternalID: or.ID}
	for _, link := range or.Links {
		if link.Rel == "approve" {
			order.ApprovalLink = link.Href
			break
		}
	}
	if order.ExternalID == "" || order.ApprovalLink == "" {
		return nil, errors.Gateway("gateway response missing order id or approval link", nil)
	}

	c.logger.Debug().Str("external_order_id", order.ExternalID).Msg("created gateway order")
	return order, nil
}

func (c *Client) CaptureOrder(ctx context.Context, externalID string) (gateway.Status, error) {
	var or orderResponse
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", externalID)
	if err := c.do(ctx, http.MethodPost, path, nil, &or); err != nil {
		return "", err
	}
	if or.Status == "" {
		return "", errors.Gateway("gateway capture response missing status", nil)
	}
	return gateway.Status(or.Status), nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Gateway("failed to marshal gateway request", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return errors.Gateway("failed to build gateway request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var resp *http.Response
	err = c.cb.Execute(func() error {
		var doErr error
		resp, doErr = c.httpClient.Do(req)
		return doErr
	})
	if err != nil {
		return errors.Gateway("gateway request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Gateway(fmt.Sprintf("gateway returned %d for %s %s", resp.StatusCode, method, path), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Gateway("failed to decode gateway response", err)
		}
	}
	return nil
}
