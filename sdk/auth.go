package sdk

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

// Header constants used by the pipeline policies.
const (
	// HeaderAuthorization carries the bearer token.
	HeaderAuthorization = "Authorization"

	// HeaderClientRequestID correlates a request with service-side logs.
	HeaderClientRequestID = "x-ms-client-request-id"

	// HeaderRequestID is the service-assigned request ID returned by ARM.
	HeaderRequestID = "x-ms-request-id"
)

// newBearerTokenPolicy returns azcore's bearer token policy for config's scopes.
// It caches tokens and refreshes them shortly before expiry. Credentials are only sent
// over plain HTTP when the config allows it.
func newBearerTokenPolicy(cred azcore.TokenCredential, config ClientConfig) policy.Policy {
	return runtime.NewBearerTokenPolicy(cred, config.Scopes, &policy.BearerTokenOptions{
		InsecureAllowCredentialWithHTTP: config.AllowInsecureHTTP,
	})
}
