package sdk

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid ARM config",
			config: ClientConfig{
				Endpoint:       "https://management.azure.com",
				APIVersion:     "2019-07-01",
				SubscriptionID: "sub-123",
			},
		},
		{
			name: "valid Graph config with tenant path",
			config: ClientConfig{
				Endpoint:   "https://graph.windows.net/tenant-123/",
				APIVersion: "1.6",
				TenantID:   "tenant-123",
			},
		},
		{
			name:    "missing endpoint",
			config:  ClientConfig{APIVersion: "1.6"},
			wantErr: true,
			errMsg:  "endpoint is required",
		},
		{
			name:    "endpoint without scheme",
			config:  ClientConfig{Endpoint: "management.azure.com", APIVersion: "1.6"},
			wantErr: true,
			errMsg:  "must start with http:// or https://",
		},
		{
			name:    "missing api version",
			config:  ClientConfig{Endpoint: "https://management.azure.com"},
			wantErr: true,
			errMsg:  "api version is required",
		},
		{
			name: "retry wait max below min",
			config: ClientConfig{
				Endpoint:     "https://management.azure.com",
				APIVersion:   "1.6",
				RetryWaitMin: 10 * time.Second,
				RetryWaitMax: time.Second,
			},
			wantErr: true,
			errMsg:  "retry wait max",
		},
		{
			name: "negative rate limit",
			config: ClientConfig{
				Endpoint:          "https://management.azure.com",
				APIVersion:        "1.6",
				RequestsPerSecond: -1,
			},
			wantErr: true,
			errMsg:  "requests per second",
		},
		{
			name: "poll frequency below one second",
			config: ClientConfig{
				Endpoint:      "https://management.azure.com",
				APIVersion:    "1.6",
				PollFrequency: 100 * time.Millisecond,
			},
			wantErr: true,
			errMsg:  "poll frequency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error but got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
			if strings.HasSuffix(tt.config.Endpoint, "/") {
				t.Errorf("Validate() did not trim trailing slash: %q", tt.config.Endpoint)
			}
		})
	}
}

func TestClientConfig_Defaults(t *testing.T) {
	config := ClientConfig{
		Endpoint:          "https://management.azure.com/",
		APIVersion:        "2019-07-01",
		RequestsPerSecond: 5,
	}

	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", config.RetryAttempts)
	}
	if config.RetryWaitMin != time.Second {
		t.Errorf("RetryWaitMin = %v, want 1s", config.RetryWaitMin)
	}
	if config.RetryWaitMax != 30*time.Second {
		t.Errorf("RetryWaitMax = %v, want 30s", config.RetryWaitMax)
	}
	if config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", config.Timeout)
	}
	if config.PollFrequency != 10*time.Second {
		t.Errorf("PollFrequency = %v, want 10s", config.PollFrequency)
	}
	if config.Burst != 1 {
		t.Errorf("Burst = %d, want 1", config.Burst)
	}
	if config.HTTPClient == nil {
		t.Error("HTTPClient should be defaulted")
	}
	if len(config.Scopes) != 1 || config.Scopes[0] != "https://management.azure.com/.default" {
		t.Errorf("Scopes = %v, want [https://management.azure.com/.default]", config.Scopes)
	}
}

func TestClientConfig_NegativeRetryAttemptsKept(t *testing.T) {
	config := ClientConfig{Endpoint: "http://127.0.0.1:1", APIVersion: "1.6", RetryAttempts: -1}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if config.RetryAttempts != -1 {
		t.Errorf("RetryAttempts = %d, want -1", config.RetryAttempts)
	}
}

func TestDefaultScope(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://management.azure.com", "https://management.azure.com/.default"},
		{"https://graph.windows.net/tenant-123", "https://graph.windows.net/.default"},
		{"http://127.0.0.1:8080/base", "http://127.0.0.1:8080/.default"},
	}

	for _, tt := range tests {
		if got := defaultScope(tt.endpoint); got != tt.want {
			t.Errorf("defaultScope(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestLookupEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "AzureCloud"},
		{name: "AzureCloud", want: "AzureCloud"},
		{name: "azurechinacloud", want: "AzureChinaCloud"},
		{name: "AzureUSGovernment", want: "AzureUSGovernment"},
		{name: "mars", wantErr: true},
	}

	for _, tt := range tests {
		env, err := LookupEnvironment(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("LookupEnvironment(%q) expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("LookupEnvironment(%q) error = %v", tt.name, err)
		}
		if env.Name != tt.want {
			t.Errorf("LookupEnvironment(%q) = %s, want %s", tt.name, env.Name, tt.want)
		}
	}

	if got := AzureCloud.VaultURL("myvault"); got != "https://myvault.vault.azure.net" {
		t.Errorf("VaultURL() = %q", got)
	}
	if got := AzureCloud.Cloud().ActiveDirectoryAuthorityHost; got != AzureCloud.ActiveDirectoryEndpoint {
		t.Errorf("Cloud().ActiveDirectoryAuthorityHost = %q", got)
	}
}
