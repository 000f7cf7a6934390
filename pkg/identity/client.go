// Package identity validates end-user bearer tokens against the external
// identity provider named by AUTH_SERVER_URL. The provider itself is out of
// scope (spec's Non-goals exclude outer identity/SSO); this client only
// speaks the minimal token-introspection call the RPC surface needs,
// grounded on the same infrastructure/txproxy client shape as pkg/pangolin
// and pkg/hoop.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/R3E-Network/service_layer/infrastructure/httputil"
	"github.com/R3E-Network/service_layer/internal/domain"
	"github.com/google/uuid"
)

type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	MaxBodyBytes int64
}

type Client struct {
	baseURL string
	http    *http.Client
	maxBody int64
}

func New(cfg Config) (*Client, error) {
	base, _, err := httputil.NormalizeBaseURL(cfg.BaseURL, httputil.BaseURLOptions{})
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	httpClient, _, err := httputil.NewClientWithBaseURL(httputil.ClientConfig{
		BaseURL:      base,
		HTTPClient:   cfg.HTTPClient,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, httputil.DefaultClientDefaults())
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		maxBody: httputil.ResolveMaxBodyBytes(cfg.MaxBodyBytes, 4<<20),
	}, nil
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity: status %d: %s", e.StatusCode, e.Body)
}

type tokenInfoResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// ValidateUserToken exchanges a bearer token for the User it names,
// satisfying internal/rpc's UserValidator interface.
func (c *Client) ValidateUserToken(ctx context.Context, token string) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/tokeninfo", bytes.NewReader(nil))
	if err != nil {
		return domain.User{}, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("identity: %w", err)
	}
	defer resp.Body.Close()

	raw, err := httputil.ReadAllStrict(resp.Body, c.maxBody)
	if err != nil {
		return domain.User{}, fmt.Errorf("identity: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return domain.User{}, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out tokenInfoResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.User{}, fmt.Errorf("identity: decode response: %w", err)
	}
	return domain.User{UUID: out.ID, Email: out.Email}, nil
}
