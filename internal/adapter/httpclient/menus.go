package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		},
	}
}

type MenusClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     interfaces.TokenSource
}

func NewMenusClient(cfg string, tokens interfaces.TokenSource) *MenusClient {
	return &MenusClient{
		baseURL:    strings.TrimSuffix(cfg, "/"),
		httpClient: newHTTPClient(),
		tokens:     tokens,
	}
}

// ValidateOrder asks the menu service whether the selections belong to the
// declared daily menu. Pass-through: no caching, no retries; a mismatch is a
// ValidationError carrying the upstream detail, a transport failure is a
// DependencyError.
func (c *MenusClient) ValidateOrder(ctx context.Context, req interfaces.ValidateOrderRequest) (*interfaces.MenuValidation, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, domain.NewDependencyError("auth-service", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal validate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/menus/internal/validate-order", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewDependencyError("menu-service", err)
	}
	defer resp.Body.Close()

	// A 5xx is an outage, not a verdict on the selections.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, domain.NewDependencyError("menu-service", fmt.Errorf("status %d", resp.StatusCode))
	}

	var validation interfaces.MenuValidation
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		return nil, domain.NewDependencyError("menu-service", fmt.Errorf("decode response: %w", err))
	}

	if resp.StatusCode != http.StatusOK || !validation.OK {
		return nil, domain.NewValidationError("menu validation failed", validation.Errors...)
	}

	return &validation, nil
}

// DailyMenusRange fetches every daily menu in [from, to].
func (c *MenusClient) DailyMenusRange(ctx context.Context, from, to time.Time) ([]interfaces.DailyMenu, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, domain.NewDependencyError("auth-service", err)
	}

	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/menus/daily?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build range request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewDependencyError("menu-service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewDependencyError("menu-service", fmt.Errorf("status %d", resp.StatusCode))
	}

	var menus []interfaces.DailyMenu
	if err := json.NewDecoder(resp.Body).Decode(&menus); err != nil {
		return nil, domain.NewDependencyError("menu-service", fmt.Errorf("decode response: %w", err))
	}

	return menus, nil
}

var _ interfaces.MenusClient = (*MenusClient)(nil)
