package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lunchroom/orders/internal/domain"
	"github.com/lunchroom/orders/internal/interfaces"
)

type UsersClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewUsersClient(baseURL string) *UsersClient {
	return &UsersClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

// AssertChildBelongsToParent lists the caller's children using the caller's
// own credential. Anything short of a positive match is a ForbiddenError,
// including an unreachable user service: ownership must be proven, not
// assumed.
func (c *UsersClient) AssertChildBelongsToParent(ctx context.Context, childID, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/children", nil)
	if err != nil {
		return domain.NewForbiddenError("cannot verify child ownership")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewForbiddenError("cannot verify child ownership")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewForbiddenError("cannot verify child ownership")
	}

	var children []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&children); err != nil {
		return domain.NewForbiddenError("cannot verify child ownership")
	}

	for _, child := range children {
		if child.ID == childID {
			return nil
		}
	}
	return domain.NewForbiddenError("child does not belong to this parent")
}

var _ interfaces.UsersClient = (*UsersClient)(nil)
