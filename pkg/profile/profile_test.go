package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/sdk"
)

const validProfile = `tenant_id: 72f988bf-86f1-41af-91ab-2d7cd011db47
subscription_id: 0b1f6471-1bf0-4dda-aec3-111122223333
environment: AzureChinaCloud
logging:
  level: debug
  format: json
client:
  requests_per_second: 20
  burst: 5
  poll_interval: 15s
`

func TestParse_ValidProfile(t *testing.T) {
	p, err := Parse([]byte(validProfile))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.TenantID != "72f988bf-86f1-41af-91ab-2d7cd011db47" {
		t.Errorf("TenantID = %q", p.TenantID)
	}
	if p.Logging.Format != logging.FormatJSON {
		t.Errorf("Logging.Format = %q, want json", p.Logging.Format)
	}
	if p.Client.PollInterval != 15*time.Second {
		t.Errorf("Client.PollInterval = %v, want 15s", p.Client.PollInterval)
	}

	sp, err := p.SDKProfile()
	if err != nil {
		t.Fatalf("SDKProfile() error = %v", err)
	}
	if sp.Environment.Name != sdk.AzureChinaCloud.Name {
		t.Errorf("Environment = %q, want AzureChinaCloud", sp.Environment.Name)
	}
	if sp.SubscriptionID != "0b1f6471-1bf0-4dda-aec3-111122223333" {
		t.Errorf("SubscriptionID = %q", sp.SubscriptionID)
	}
}

func TestParse_KeepsDefaults(t *testing.T) {
	p, err := Parse([]byte("tenant_id: 72f988bf-86f1-41af-91ab-2d7cd011db47\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Environment != sdk.AzureCloud.Name {
		t.Errorf("Environment = %q, want AzureCloud", p.Environment)
	}
	if p.Logging.Level != logging.DefaultConfig().Level {
		t.Errorf("Logging.Level = %q, want default", p.Logging.Level)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"invalid yaml", "tenant_id: [unclosed", ErrInvalidYAML},
		{"tenant not a uuid", "tenant_id: contoso.onmicrosoft.com", ErrInvalidProfile},
		{"subscription not a uuid", "subscription_id: prod", ErrInvalidProfile},
		{"unknown cloud", "environment: AzureGermanCloud", ErrInvalidProfile},
		{"bad log level", "logging:\n  level: loud", ErrInvalidProfile},
		{"poll too fast", "client:\n  poll_interval: 100ms", ErrInvalidProfile},
		{"too large", strings.Repeat("#", MaxProfileSize+1), ErrProfileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	p := Default()
	env := map[string]string{
		EnvTenantID:       "72f988bf-86f1-41af-91ab-2d7cd011db47",
		EnvSubscriptionID: "",
		EnvEnvironment:    "AzureUSGovernment",
	}
	p.SubscriptionID = "0b1f6471-1bf0-4dda-aec3-111122223333"

	p.ApplyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})

	if p.TenantID != env[EnvTenantID] {
		t.Errorf("TenantID = %q, want %q", p.TenantID, env[EnvTenantID])
	}
	if p.SubscriptionID != "0b1f6471-1bf0-4dda-aec3-111122223333" {
		t.Errorf("empty variable overrode SubscriptionID: %q", p.SubscriptionID)
	}
	if p.Environment != "AzureUSGovernment" {
		t.Errorf("Environment = %q", p.Environment)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	if err := os.WriteFile(path, []byte(validProfile), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Client.Burst != 5 {
		t.Errorf("Client.Burst = %d, want 5", p.Client.Burst)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing explicit path succeeded")
	}
}
