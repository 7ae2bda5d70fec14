// Package testutil provides fakes shared by azfluent package tests: a token credential,
// sdk clients pointed at httptest servers, and JSON response helpers.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"github.com/yaroslav/azfluent/models"
	"github.com/yaroslav/azfluent/sdk"
)

const (
	// SubscriptionID is the subscription every test client is bound to.
	SubscriptionID = "00000000-0000-0000-0000-000000000001"

	// TenantID is the tenant every test client is bound to.
	TenantID = "00000000-0000-0000-0000-0000000000aa"
)

// Credential is an azcore.TokenCredential that always returns the same token.
type Credential struct{}

// GetToken implements azcore.TokenCredential.
func (Credential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// NewClient returns an sdk client for endpoint with pipeline retries disabled and the
// shortest allowed poll frequency.
func NewClient(t testing.TB, endpoint, apiVersion string) *sdk.Client {
	t.Helper()

	client, err := sdk.NewClient(Credential{}, sdk.ClientConfig{
		Endpoint:          endpoint,
		APIVersion:        apiVersion,
		SubscriptionID:    SubscriptionID,
		TenantID:          TenantID,
		RetryAttempts:     -1,
		PollFrequency:     time.Second,
		AllowInsecureHTTP: true,
	})
	if err != nil {
		t.Fatalf("sdk.NewClient() error = %v", err)
	}
	return client
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes an ARM error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, models.ErrorResponse{Error: &models.ErrorBody{Code: code, Message: message}})
}

// WriteGraphError writes an Azure AD Graph error envelope.
func WriteGraphError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, models.GraphErrorResponse{Error: &models.GraphError{
		Code:    code,
		Message: models.GraphErrorMessage{Lang: "en", Value: message},
	}})
}

// DecodeJSON decodes the request body into v, failing the test on error.
func DecodeJSON(t testing.TB, r *http.Request, v any) {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Errorf("failed to read request body: %v", err)
		return
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Errorf("request body is not valid JSON: %v: %s", err, body)
	}
}

// Recorder records "METHOD path" for each request a test server receives.
type Recorder struct {
	mu       sync.Mutex
	requests []string
}

// Record appends r to the log.
func (rec *Recorder) Record(r *http.Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.requests = append(rec.requests, r.Method+" "+r.URL.Path)
}

// Requests returns a copy of the log.
func (rec *Recorder) Requests() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.requests...)
}

// Count returns how many recorded requests equal "METHOD path".
func (rec *Recorder) Count(methodAndPath string) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := 0
	for _, r := range rec.requests {
		if r == methodAndPath {
			n++
		}
	}
	return n
}

// NewServer starts an httptest server that records every request before handing it to handler.
func NewServer(t testing.TB, rec *Recorder, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.Record(r)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

// Environment returns an environment whose Resource Manager and Graph endpoints are serverURL.
func Environment(serverURL string) sdk.Environment {
	return sdk.Environment{
		Name:                    "Test",
		ActiveDirectoryEndpoint: serverURL + "/",
		ResourceManagerEndpoint: serverURL + "/",
		GraphEndpoint:           serverURL + "/",
		ManagementEndpoint:      serverURL + "/",
		KeyVaultDNSSuffix:       ".vault.test",
	}
}

// Profile returns the test tenant and subscription bound to serverURL.
func Profile(serverURL string) sdk.Profile {
	return sdk.Profile{
		TenantID:       TenantID,
		SubscriptionID: SubscriptionID,
		Environment:    Environment(serverURL),
	}
}

// Configure applies the test client settings to a service Configurable.
func Configure[M any](c *sdk.Configurable[M]) *sdk.Configurable[M] {
	return c.WithRetry(-1, 0, 0).WithPollFrequency(time.Second).WithInsecureHTTP()
}

// Authenticate builds a manager against serverURL with the test settings, failing the
// test on error.
func Authenticate[M any](t testing.TB, c *sdk.Configurable[M], serverURL string) M {
	t.Helper()

	manager, err := Configure(c).Authenticate(Credential{}, Profile(serverURL))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	return manager
}
