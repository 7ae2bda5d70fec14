package sdk

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig contains the configuration for creating a new SDK client.
type ClientConfig struct {
	// Endpoint is the service base URL (e.g., "https://management.azure.com" for ARM,
	// or "https://graph.windows.net/{tenant}" for Azure AD Graph).
	Endpoint string

	// APIVersion is appended as the api-version query parameter when a request URL does
	// not already carry one.
	APIVersion string

	// Scopes are the OAuth scopes requested from the token credential.
	// Default: "{Endpoint host}/.default"
	Scopes []string

	// SubscriptionID is the subscription ARM paths are built under.
	// Optional: Graph clients do not need it.
	SubscriptionID string

	// TenantID is the Azure AD tenant.
	// Optional: only Graph and Key Vault clients need it.
	TenantID string

	// HTTPClient is the HTTP client used to send requests.
	// Optional: if nil, a default client with reasonable timeouts will be created.
	HTTPClient *http.Client

	// RetryAttempts is the number of times the pipeline retries throttled or failed requests.
	// A negative value disables pipeline retries.
	// Default: 3
	RetryAttempts int

	// RetryWaitMin is the initial backoff between pipeline retries.
	// Default: 1 second
	RetryWaitMin time.Duration

	// RetryWaitMax caps the backoff between pipeline retries.
	// Default: 30 seconds
	RetryWaitMax time.Duration

	// Timeout bounds a single request attempt.
	// Default: 60 seconds
	Timeout time.Duration

	// RequestsPerSecond enables a client-side token bucket when positive.
	// Default: 0 (unlimited)
	RequestsPerSecond float64

	// Burst is the token bucket size used with RequestsPerSecond.
	// Default: 1 when RequestsPerSecond is set
	Burst int

	// PollFrequency is how often long-running operations are polled.
	// Must be at least one second.
	// Default: 10 seconds
	PollFrequency time.Duration

	// AllowInsecureHTTP lets bearer tokens be sent to http:// endpoints, such as local
	// test servers. Without it authenticated requests to them fail.
	AllowInsecureHTTP bool

	// Logger receives request and retry logs.
	// Optional: if nil, nothing is logged.
	Logger *zap.Logger
}

// Validate checks if the client configuration is valid and sets defaults.
func (c *ClientConfig) Validate() error {
	endpoint := strings.TrimSuffix(strings.TrimSpace(c.Endpoint), "/")
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("%w: endpoint must start with http:// or https://", ErrInvalidConfig)
	}
	c.Endpoint = endpoint

	if strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("%w: api version is required", ErrInvalidConfig)
	}

	if len(c.Scopes) == 0 {
		c.Scopes = []string{defaultScope(endpoint)}
	}

	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 1 * time.Second
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = 30 * time.Second
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		return fmt.Errorf("%w: retry wait max must not be less than retry wait min", ErrInvalidConfig)
	}

	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", ErrInvalidConfig)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		c.Burst = 1
	}

	if c.PollFrequency == 0 {
		c.PollFrequency = 10 * time.Second
	}
	if c.PollFrequency < time.Second {
		return fmt.Errorf("%w: poll frequency must be at least one second", ErrInvalidConfig)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return nil
}

// defaultScope derives the ".default" scope of the endpoint's host.
func defaultScope(endpoint string) string {
	rest := endpoint
	scheme := ""
	if i := strings.Index(rest, "://"); i >= 0 {
		scheme, rest = rest[:i+3], rest[i+3:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest + "/.default"
}
