// Package pangolin implements the VPN API client named in spec.md §6: plain
// REST/JSON over a bearer API key, grounded on the teacher's
// infrastructure/txproxy client shape, simplified from mTLS service-mesh
// identity down to one static header.
package pangolin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/R3E-Network/service_layer/infrastructure/httputil"
)

type Config struct {
	BaseURL      string
	APIKey       string
	HTTPClient   *http.Client
	MaxBodyBytes int64
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	maxBody int64
}

func New(cfg Config) (*Client, error) {
	base, _, err := httputil.NormalizeBaseURL(cfg.BaseURL, httputil.BaseURLOptions{})
	if err != nil {
		return nil, fmt.Errorf("pangolin client: %w", err)
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
		apiKey:  cfg.APIKey,
		http:    httpClient,
		maxBody: httputil.ResolveMaxBodyBytes(cfg.MaxBodyBytes, 4<<20),
	}, nil
}

// User is one row of GET /v1/org/{org}/users.
type User struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	RoleID   *string `json:"role_id,omitempty"`
	Disabled bool    `json:"disabled"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type updateUserRequest struct {
	RoleID   *string `json:"role_id,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("pangolin: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("pangolin: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("pangolin: %w", err)
	}
	defer resp.Body.Close()

	raw, err := httputil.ReadAllStrict(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("pangolin: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("pangolin: decode response: %w", err)
	}
	return nil
}

// StatusError is returned for any non-2xx response; callers classify 429 as
// transient and every other 4xx as permanent, per spec.md §4.8 step 6.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pangolin: status %d: %s", e.StatusCode, e.Body)
}

// InviteUser invites email into org by slug.
func (c *Client) InviteUser(ctx context.Context, orgSlug, email string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/org/%s/invite", orgSlug), inviteRequest{Email: email}, nil)
}

// ListUsers lists every user in org.
func (c *Client) ListUsers(ctx context.Context, orgSlug string) ([]User, error) {
	var out []User
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/org/%s/users", orgSlug), nil, &out)
	return out, err
}

// RemoveUser removes userID from org.
func (c *Client) RemoveUser(ctx context.Context, orgSlug, userID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/org/%s/user/%s", orgSlug, userID), nil, nil)
}

// UpdateUser patches roleID and/or disabled for userID in org.
func (c *Client) UpdateUser(ctx context.Context, orgSlug, userID string, roleID *string, disabled *bool) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/org/%s/user/%s", orgSlug, userID),
		updateUserRequest{RoleID: roleID, Disabled: disabled}, nil)
}
