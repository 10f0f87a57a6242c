package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lunchroom/orders/internal/config"
	"github.com/lunchroom/orders/internal/interfaces"
)

// refreshMargin keeps us from handing out a token about to expire mid-call.
const refreshMargin = 30 * time.Second

// TokenCache holds one service credential and refreshes it on read once its
// expiry gets within the safety margin. It is an explicit injected object,
// never package state.
type TokenCache struct {
	cfg        config.AuthConfig
	httpClient *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

func NewTokenCache(cfg config.AuthConfig) *TokenCache {
	return &TokenCache{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		now:        time.Now,
	}
}

func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.expiresAt.Sub(c.now()) > refreshMargin {
		return c.token, nil
	}

	token, expiresAt, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = expiresAt
	return c.token, nil
}

func (c *TokenCache) fetch(ctx context.Context) (string, time.Time, error) {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token",
		strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Realm)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("request service token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", time.Time{}, fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty access_token")
	}

	return payload.AccessToken, tokenExpiry(payload.AccessToken), nil
}

// tokenExpiry reads exp from the token without verifying the signature; the
// issuer is trusted here, the claim is only used for cache scheduling.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

var _ interfaces.TokenSource = (*TokenCache)(nil)
