// Package hoop implements the SSH bastion API client named in spec.md §6:
// plain REST/JSON over a static API key header, grounded on the same
// infrastructure/txproxy client shape as pkg/pangolin.
package hoop

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
		return nil, fmt.Errorf("hoop client: %w", err)
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

// Agent is the response shape from the agent endpoints. Token is formatted
// as grpc://<name>:<token>@<gateway>:<port>?mode=<mode>, per spec.md §6.
type Agent struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

type createAgentRequest struct {
	Name string `json:"name"`
}

type createConnectionRequest struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hoop: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hoop: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("hoop: build request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hoop: %w", err)
	}
	defer resp.Body.Close()

	raw, err := httputil.ReadAllStrict(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("hoop: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hoop: decode response: %w", err)
	}
	return nil
}

// CreateAgent registers a new bastion agent.
func (c *Client) CreateAgent(ctx context.Context, name string) (Agent, error) {
	var out Agent
	err := c.do(ctx, http.MethodPost, "/api/agents", createAgentRequest{Name: name}, &out)
	return out, err
}

// DeleteAgent removes an agent by name or id.
func (c *Client) DeleteAgent(ctx context.Context, nameOrID string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/agents/%s", nameOrID), nil, nil)
}

// GetAgent fetches one agent by name or id.
func (c *Client) GetAgent(ctx context.Context, nameOrID string) (Agent, error) {
	var out Agent
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/agents/%s", nameOrID), nil, &out)
	return out, err
}

// CreateConnection creates a bastion connection bound to agentID.
func (c *Client) CreateConnection(ctx context.Context, name, agentID string) error {
	return c.do(ctx, http.MethodPost, "/api/connections", createConnectionRequest{Name: name, AgentID: agentID}, nil)
}

// DeleteConnection removes a connection by name.
func (c *Client) DeleteConnection(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/connections/%s", name), nil, nil)
}
