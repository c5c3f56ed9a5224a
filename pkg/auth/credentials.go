package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const bearerTokenKey = "service_bearer_token"

// CredentialProvider supplies the bearer token for outbound service calls.
// It is injected into whatever client needs it; there is no shared mutable
// global holding the token.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type clientCredentialsProvider struct {
	cfg        ClientCredentialsConfig
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewClientCredentialsProvider returns a provider that exchanges client
// credentials for a JWT at the payment service's token endpoint and caches
// it until shortly before expiry.
func NewClientCredentialsProvider(cfg ClientCredentialsConfig) CredentialProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &clientCredentialsProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

type issuedToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (p *clientCredentialsProvider) Token(ctx context.Context) (string, error) {
	if token, found := p.cache.Get(bearerTokenKey); found {
		return token.(string), nil
	}

	payload := fmt.Sprintf(`{"client_id":%q,"client_secret":%q}`, p.cfg.ClientID, p.cfg.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var issued issuedToken
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	ttl := time.Duration(issued.ExpiresIn)*time.Second - 30*time.Second
	if ttl <= 0 {
		ttl = time.Duration(issued.ExpiresIn) * time.Second
	}
	p.cache.Set(bearerTokenKey, issued.AccessToken, ttl)

	return issued.AccessToken, nil
}
