// Package sdk is the REST plumbing shared by every azfluent service package.
//
// A Client wraps an azcore pipeline configured with bearer token authentication,
// client request IDs, an optional client-side rate limit, request logging and
// Prometheus metrics. Service packages build paths, call DoJSON for plain
// request/response operations, NewPager for nextLink-chained lists and
// Begin/BeginAndWait for long-running operations.
package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent/internal/logging"
)

const (
	moduleName    = "azfluent"
	moduleVersion = "v0.1.0"
)

// Client sends requests to one Azure REST endpoint.
// It is safe for concurrent use and is shared by every collection of a manager.
type Client struct {
	// Endpoint is the base URL requests are sent to.
	Endpoint string

	// APIVersion is the default api-version query parameter.
	APIVersion string

	// SubscriptionID is the subscription ARM paths are built under.
	SubscriptionID string

	// TenantID is the Azure AD tenant.
	TenantID string

	// PollFrequency is how often long-running operations are polled.
	PollFrequency time.Duration

	// Logger is the fallback logger for this client; a logger stored in the request
	// context takes precedence.
	Logger *zap.Logger

	pipeline runtime.Pipeline
}

// NewClient creates a new SDK client with the given credential and configuration.
// It validates the configuration and assembles the request pipeline.
func NewClient(cred azcore.TokenCredential, config ClientConfig) (*Client, error) {
	if cred == nil {
		return nil, ErrMissingCredential
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	perCall := []policy.Policy{requestIDPolicy{}}
	if config.RequestsPerSecond > 0 {
		perCall = append(perCall, newThrottlePolicy(config.RequestsPerSecond, config.Burst))
	}

	logger := logging.OrNop(config.Logger)
	perRetry := []policy.Policy{
		newBearerTokenPolicy(cred, config),
		&loggingPolicy{logger: logger},
	}

	pl := runtime.NewPipeline(moduleName, moduleVersion,
		runtime.PipelineOptions{PerCall: perCall, PerRetry: perRetry},
		&policy.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    int32(config.RetryAttempts),
				RetryDelay:    config.RetryWaitMin,
				MaxRetryDelay: config.RetryWaitMax,
				TryTimeout:    config.Timeout,
			},
			Transport: config.HTTPClient,
		},
	)

	return &Client{
		Endpoint:       config.Endpoint,
		APIVersion:     config.APIVersion,
		SubscriptionID: config.SubscriptionID,
		TenantID:       config.TenantID,
		PollFrequency:  config.PollFrequency,
		Logger:         logger,
		pipeline:       pl,
	}, nil
}

// Pipeline returns the underlying azcore pipeline.
func (c *Client) Pipeline() runtime.Pipeline {
	return c.pipeline
}

// SubscriptionScope returns "/subscriptions/{subscriptionId}".
func (c *Client) SubscriptionScope() string {
	return "/subscriptions/" + url.PathEscape(c.SubscriptionID)
}

// ResourceGroupScope returns "/subscriptions/{subscriptionId}/resourceGroups/{resourceGroup}".
func (c *Client) ResourceGroupScope(resourceGroup string) string {
	return c.SubscriptionScope() + "/resourceGroups/" + url.PathEscape(resourceGroup)
}

// ProviderPath returns the path of a resource type (or resource, when names are given)
// under a resource group, e.g. ProviderPath("rg", "Microsoft.Compute/snapshots", "snap1").
func (c *Client) ProviderPath(resourceGroup, resourceType string, names ...string) string {
	var b strings.Builder
	b.WriteString(c.ResourceGroupScope(resourceGroup))
	b.WriteString("/providers/")
	b.WriteString(resourceType)
	for _, name := range names {
		b.WriteString("/")
		b.WriteString(url.PathEscape(name))
	}
	return b.String()
}

// URL resolves path against the endpoint and adds the api-version when missing.
// Absolute URLs (such as ARM nextLinks) are sent byte for byte; only a missing
// api-version is appended, since skip tokens are opaque to the client.
func (c *Client) URL(path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return c.absoluteURL(path)
	}

	raw := c.Endpoint + "/" + strings.TrimPrefix(path, "/")
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URL %q: %w", raw, err)
	}

	query := u.Query()
	if query.Get("api-version") == "" && c.APIVersion != "" {
		query.Set("api-version", c.APIVersion)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func (c *Client) absoluteURL(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URL %q: %w", link, err)
	}
	if c.APIVersion == "" || u.Query().Get("api-version") != "" {
		return link, nil
	}

	sep := "&"
	switch {
	case strings.HasSuffix(link, "?") || strings.HasSuffix(link, "&"):
		sep = ""
	case u.RawQuery == "":
		sep = "?"
	}
	return link + sep + "api-version=" + url.QueryEscape(c.APIVersion), nil
}

// NewRequest builds a JSON request for method and path. body is marshalled when non-nil.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*policy.Request, error) {
	endpoint, err := c.URL(path)
	if err != nil {
		return nil, err
	}

	req, err := runtime.NewRequest(ctx, method, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Raw().Header.Set("Accept", "application/json")

	if body != nil {
		if err := runtime.MarshalAsJSON(req, body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	return req, nil
}

// Send runs req through the pipeline. A response whose status is not listed in
// statusCodes (any 2xx when none are given) is converted into a *CloudError.
func (c *Client) Send(req *policy.Request, statusCodes ...int) (*http.Response, error) {
	resp, err := c.pipeline.Do(req)
	if err != nil {
		return nil, err
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(statusCodes) > 0 {
		ok = runtime.HasStatusCode(resp, statusCodes...)
	}
	if !ok {
		return nil, newCloudError(resp)
	}

	return resp, nil
}

// DoJSON is a convenience method that performs a request with JSON body and parses the JSON response.
//
// Parameters:
//   - ctx: Request context for cancellation and timeouts
//   - method: HTTP method
//   - path: Path relative to the endpoint, or an absolute URL
//   - reqBody: Value marshalled as the request body (nil for none)
//   - respBody: Pointer the response body is unmarshalled into (nil to discard)
//
// Returns:
//   - error: *CloudError for non-2xx responses, or transport and decoding errors
func (c *Client) DoJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	req, err := c.NewRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}

	resp, err := c.Send(req)
	if err != nil {
		return err
	}

	if respBody == nil || resp.StatusCode == http.StatusNoContent {
		drainAndCloseBody(resp)
		return nil
	}

	if err := runtime.UnmarshalAsJSON(resp, respBody); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return nil
}

// drainAndCloseBody reads and closes the response body to ensure connection reuse.
func drainAndCloseBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		runtime.Drain(resp)
	}
}
