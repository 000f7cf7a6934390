// Package hypervisor implements the Hypervisor Client (§4.2): a typed REST
// client for one backend URL + credential, translating its JSON-over-HTTP
// protocol into the platform's internal operations and error taxonomy.
//
// Wire shape is grounded on the teacher's infrastructure/httputil client
// helpers (NewClientWithBaseURL, bounded body reads) adapted from mTLS
// service-mesh semantics to a single bearer authorization header per
// backend, as named in the external interfaces contract.
package hypervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/R3E-Network/service_layer/infrastructure/httputil"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
	"github.com/R3E-Network/service_layer/infrastructure/resilience"
)

const defaultMaxBodyBytes = 4 << 20

// Config configures one Client for one backend URL + credential.
type Config struct {
	BaseURL            string
	AuthorizationToken string
	HTTPClient         *http.Client
	MaxBodyBytes       int64
}

// Client is a REST client for one hypervisor backend cluster. Redirects are
// disabled; any redirect response is surfaced as UnexpectedRedirect.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	maxBody int64
	Metrics *metrics.Metrics
	Breaker *resilience.CircuitBreaker
}

// record increments the HypervisorCalls counter, a no-op when Metrics is nil.
func (c *Client) record(operation string, err error) {
	if c.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.Metrics.HypervisorCalls.WithLabelValues(operation, outcome).Inc()
}

// New builds a Client, normalizing the base URL and disabling redirects.
func New(cfg Config) (*Client, error) {
	base, _, err := httputil.NormalizeBaseURL(cfg.BaseURL, httputil.BaseURLOptions{})
	if err != nil {
		return nil, fmt.Errorf("hypervisor client: %w", err)
	}

	httpClient, _, err := httputil.NewClientWithBaseURL(httputil.ClientConfig{
		BaseURL:      base,
		HTTPClient:   cfg.HTTPClient,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, httputil.DefaultClientDefaults())
	if err != nil {
		return nil, err
	}
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL: base,
		token:   cfg.AuthorizationToken,
		http:    httpClient,
		maxBody: httputil.ResolveMaxBodyBytes(cfg.MaxBodyBytes, defaultMaxBodyBytes),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("hypervisor: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("hypervisor: build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	roundTrip := func() error {
		var doErr error
		resp, doErr = c.http.Do(req)
		return doErr
	}
	if c.Breaker != nil {
		err = c.Breaker.Execute(ctx, roundTrip)
	} else {
		err = roundTrip()
	}
	if err != nil {
		return fmt.Errorf("hypervisor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return &Error{Kind: KindUnexpectedRedirect, Message: resp.Header.Get("Location")}
	}
	if isCloudflareBlock(resp) {
		return &Error{Kind: KindGuardedByCloudflare}
	}

	raw, err := httputil.ReadAllStrict(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("hypervisor: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if out == nil {
			return nil
		}
		env := envelope[json.RawMessage]{}
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("hypervisor: decode envelope: %w", err)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("hypervisor: decode data: %w", err)
		}
		return nil
	case http.StatusBadRequest:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return &Error{Kind: KindInvalid, Message: eb.Message, Errors: eb.Errors}
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized}
	case http.StatusInternalServerError:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return classifyInternalMessage(eb.Message)
	default:
		return &Error{Kind: KindUnexpectedResponse, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
}

func isCloudflareBlock(resp *http.Response) bool {
	return resp.StatusCode == http.StatusForbidden && strings.Contains(resp.Header.Get("Server"), "cloudflare")
}

// NextID requests a fresh numeric VM identifier unique across the cluster.
func (c *Client) NextID(ctx context.Context) (int, error) {
	var raw string
	if err := c.do(ctx, http.MethodGet, "/api2/json/cluster/nextid", nil, &raw); err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// ListResources returns the cluster-wide VM inventory.
func (c *Client) ListResources(ctx context.Context) ([]ClusterResource, error) {
	var out []ClusterResource
	err := c.do(ctx, http.MethodGet, "/api2/json/cluster/resources", nil, &out)
	return out, err
}

// ListInstances returns the per-node VM listing.
func (c *Client) ListInstances(ctx context.Context, node string) ([]ClusterResource, error) {
	var out []ClusterResource
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api2/json/nodes/%s/qemu", node), nil, &out)
	return out, err
}

// GetStatus returns the current run status of one VM.
func (c *Client) GetStatus(ctx context.Context, node string, vmid int) (VMStatus, error) {
	var out VMStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/status/current", node, vmid), nil, &out)
	return out, err
}

// GetIP returns the VM's guest-agent reported IPv4, or "" if the agent is
// absent or reports no addresses.
func (c *Client) GetIP(ctx context.Context, node string, vmid int) (string, error) {
	var out struct {
		Result []NetworkInterface `json:"result"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/agent/network-get-interfaces", node, vmid), nil, &out)
	if err != nil {
		if e, ok := err.(*Error); ok && (e.Kind == KindInternal || e.Kind == KindInvalid) {
			return "", nil
		}
		return "", err
	}
	for _, iface := range out.Result {
		if iface.Name == "lo" {
			continue
		}
		for _, ip := range iface.IPAddresses {
			if !strings.Contains(ip, ":") { // skip IPv6
				return ip, nil
			}
		}
	}
	return "", nil
}

// Create issues a create-VM request and returns its task handle.
func (c *Client) Create(ctx context.Context, node string, cfg VMConfig) (Task, error) {
	var upid string
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api2/json/nodes/%s/qemu", node), cfg, &upid)
	c.record("create", err)
	return Task{UPID: upid}, err
}

// Clone issues a clone request and returns its task handle.
func (c *Client) Clone(ctx context.Context, node string, srcVMID, newVMID int, full bool) (Task, error) {
	var upid string
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/clone", node, srcVMID),
		CloneRequest{NewID: newVMID, Full: full}, &upid)
	c.record("clone", err)
	return Task{UPID: upid}, err
}

// Delete issues a delete-VM request and returns its task handle.
func (c *Client) Delete(ctx context.Context, node string, vmid int) (Task, error) {
	var upid string
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d", node, vmid), nil, &upid)
	c.record("delete", err)
	return Task{UPID: upid}, err
}

// Start issues a start request and returns its task handle.
func (c *Client) Start(ctx context.Context, node string, vmid int) (Task, error) {
	var upid string
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/status/start", node, vmid), nil, &upid)
	c.record("start", err)
	return Task{UPID: upid}, err
}

// Stop issues a stop request and returns its task handle.
func (c *Client) Stop(ctx context.Context, node string, vmid int) (Task, error) {
	var upid string
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/status/stop", node, vmid), nil, &upid)
	c.record("stop", err)
	return Task{UPID: upid}, err
}

// ResizeDisk resizes disk to sizeBytes (expressed to the backend in whole
// gibibytes) and returns its task handle.
func (c *Client) ResizeDisk(ctx context.Context, node string, vmid int, disk string, sizeBytes int64) (Task, error) {
	gib := sizeBytes / (1 << 30)
	var upid string
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api2/json/nodes/%s/qemu/%d/resize", node, vmid),
		ResizeRequest{Disk: disk, Size: fmt.Sprintf("%dG", gib)}, &upid)
	return Task{UPID: upid}, err
}

// GetTask fetches the current status record for a task.
func (c *Client) GetTask(ctx context.Context, node string, task Task) (TaskRecord, error) {
	var out TaskRecord
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api2/json/nodes/%s/tasks/%s/status", node, task.UPID), nil, &out)
	out.UPID = task.UPID
	return out, err
}

// TranslateError converts a wire-level *Error into the common error kind
// per §4.2's error translation table: VMNotFound -> DistantInstanceNotFound,
// stopped-VM-requires-running -> InstanceNotRunning, everything else -> Other.
func TranslateError(err error) (kind string, vmid string, ok bool) {
	e, isErr := err.(*Error)
	if !isErr {
		return "", "", false
	}
	switch e.Kind {
	case KindVMNotFound:
		return "DistantInstanceNotFound", e.VMID, true
	case KindVMNotRunning:
		return "InstanceNotRunning", e.VMID, true
	default:
		return "Other", "", true
	}
}

// CIDRToSubnetID converts a CIDR (e.g. "10.0.0.0/24") to the backend's
// subnet-id namespace, a total substitution of "/" with "-".
func CIDRToSubnetID(cidr string) string {
	return strings.ReplaceAll(cidr, "/", "-")
}
