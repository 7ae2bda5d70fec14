package sdk

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"go.uber.org/zap"
)

// Profile identifies the tenant, subscription and cloud a manager operates in.
type Profile struct {
	TenantID       string
	SubscriptionID string

	// Environment selects the cloud endpoints. The zero value means AzureCloud.
	Environment Environment
}

// Env returns the profile's environment, defaulting to AzureCloud.
func (p Profile) Env() Environment {
	if p.Environment.ResourceManagerEndpoint == "" && p.Environment.GraphEndpoint == "" {
		return AzureCloud
	}
	return p.Environment
}

// RequireSubscription returns an ErrInvalidConfig error when the subscription is missing.
func (p Profile) RequireSubscription() error {
	if strings.TrimSpace(p.SubscriptionID) == "" {
		return fmt.Errorf("%w: subscription id is required", ErrInvalidConfig)
	}
	return nil
}

// RequireTenant returns an ErrInvalidConfig error when the tenant is missing.
func (p Profile) RequireTenant() error {
	if strings.TrimSpace(p.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidConfig)
	}
	return nil
}

// BuildFunc constructs a manager of type M from a credential, a profile and the shared
// client settings.
type BuildFunc[M any] func(cred azcore.TokenCredential, profile Profile, template ClientConfig) (M, error)

// Configurable collects client settings before a manager is authenticated.
// Every service package exposes Configure() returning a Configurable for its manager.
type Configurable[M any] struct {
	template ClientConfig
	build    BuildFunc[M]
}

// NewConfigurable returns a Configurable that hands its settings to build.
func NewConfigurable[M any](build BuildFunc[M]) *Configurable[M] {
	return &Configurable[M]{build: build}
}

// WithLogger sets the logger used for request and retry logs.
func (c *Configurable[M]) WithLogger(logger *zap.Logger) *Configurable[M] {
	c.template.Logger = logger
	return c
}

// WithHTTPClient sets the HTTP client requests are sent with.
func (c *Configurable[M]) WithHTTPClient(client *http.Client) *Configurable[M] {
	c.template.HTTPClient = client
	return c
}

// WithRetry configures pipeline retries of throttled and failed requests.
// A negative attempts value disables them.
func (c *Configurable[M]) WithRetry(attempts int, waitMin, waitMax time.Duration) *Configurable[M] {
	c.template.RetryAttempts = attempts
	c.template.RetryWaitMin = waitMin
	c.template.RetryWaitMax = waitMax
	return c
}

// WithTimeout bounds a single request attempt.
func (c *Configurable[M]) WithTimeout(timeout time.Duration) *Configurable[M] {
	c.template.Timeout = timeout
	return c
}

// WithRateLimit enables a client-side token bucket.
func (c *Configurable[M]) WithRateLimit(requestsPerSecond float64, burst int) *Configurable[M] {
	c.template.RequestsPerSecond = requestsPerSecond
	c.template.Burst = burst
	return c
}

// WithPollFrequency sets how often long-running operations are polled.
func (c *Configurable[M]) WithPollFrequency(frequency time.Duration) *Configurable[M] {
	c.template.PollFrequency = frequency
	return c
}

// WithInsecureHTTP allows bearer tokens to be sent to http:// endpoints.
func (c *Configurable[M]) WithInsecureHTTP() *Configurable[M] {
	c.template.AllowInsecureHTTP = true
	return c
}

// Template returns a copy of the collected client settings.
func (c *Configurable[M]) Template() ClientConfig {
	return c.template
}

// Authenticate builds the manager.
func (c *Configurable[M]) Authenticate(cred azcore.TokenCredential, profile Profile) (M, error) {
	return c.build(cred, profile, c.template)
}

// NewARMClient returns a client for the environment's Resource Manager endpoint.
func NewARMClient(cred azcore.TokenCredential, profile Profile, template ClientConfig, apiVersion string) (*Client, error) {
	config := template
	config.Endpoint = profile.Env().ResourceManagerEndpoint
	config.APIVersion = apiVersion
	config.SubscriptionID = profile.SubscriptionID
	config.TenantID = profile.TenantID
	return NewClient(cred, config)
}

// NewGraphClient returns a client for the environment's Azure AD Graph endpoint,
// rooted at the profile's tenant.
func NewGraphClient(cred azcore.TokenCredential, profile Profile, template ClientConfig, apiVersion string) (*Client, error) {
	config := template
	config.Endpoint = strings.TrimSuffix(profile.Env().GraphEndpoint, "/") + "/" + profile.TenantID
	config.Scopes = []string{defaultScope(profile.Env().GraphEndpoint)}
	config.APIVersion = apiVersion
	config.SubscriptionID = profile.SubscriptionID
	config.TenantID = profile.TenantID
	return NewClient(cred, config)
}
