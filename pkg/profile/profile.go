// Package profile loads the azfluent CLI profile: which tenant, subscription and cloud
// to talk to, and how to log.
//
// A profile is a YAML file:
//
//	tenant_id: 72f988bf-86f1-41af-91ab-2d7cd011db47
//	subscription_id: 0b1f6471-1bf0-4dda-aec3-111122223333
//	environment: AzureCloud
//	logging:
//	  level: info
//	  format: console
//	client:
//	  requests_per_second: 20
//	  burst: 5
//	  poll_interval: 10s
//
// Values from AZURE_TENANT_ID, AZURE_SUBSCRIPTION_ID and AZURE_ENVIRONMENT override the
// file, and command line flags override both.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/sdk"
)

const (
	// MaxProfileSize is the largest profile file Load accepts (64 KiB).
	MaxProfileSize = 64 * 1024

	// EnvTenantID overrides the profile tenant.
	EnvTenantID = "AZURE_TENANT_ID"

	// EnvSubscriptionID overrides the profile subscription.
	EnvSubscriptionID = "AZURE_SUBSCRIPTION_ID"

	// EnvEnvironment overrides the profile cloud.
	EnvEnvironment = "AZURE_ENVIRONMENT"
)

var (
	// ErrProfileTooLarge indicates the profile file exceeds MaxProfileSize.
	ErrProfileTooLarge = errors.New("profile exceeds 64 KiB size limit")

	// ErrInvalidYAML indicates the profile is not valid YAML.
	ErrInvalidYAML = errors.New("profile contains invalid YAML")

	// ErrInvalidProfile indicates a profile value is malformed.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Profile is the decoded profile file.
type Profile struct {
	TenantID       string         `yaml:"tenant_id"`
	SubscriptionID string         `yaml:"subscription_id"`
	Environment    string         `yaml:"environment"`
	Logging        logging.Config `yaml:"logging"`
	Client         ClientSettings `yaml:"client"`
}

// ClientSettings tune the REST clients built from the profile.
type ClientSettings struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Default returns the profile used when no file exists.
func Default() *Profile {
	return &Profile{
		Environment: sdk.AzureCloud.Name,
		Logging:     logging.DefaultConfig(),
	}
}

// DefaultPath returns $HOME/.azfluent/profile.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".azfluent", "profile.yaml")
	}
	return filepath.Join(home, ".azfluent", "profile.yaml")
}

// Load reads the profile at path. A missing file at the default path yields Default();
// a missing file anywhere else is an error.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && path == DefaultPath() {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates profile YAML. Unset fields keep their defaults.
func Parse(data []byte) (*Profile, error) {
	if len(data) > MaxProfileSize {
		return nil, ErrProfileTooLarge
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyEnv overrides profile fields from the AZURE_* variables that lookup reports.
func (p *Profile) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvTenantID); ok && v != "" {
		p.TenantID = v
	}
	if v, ok := lookup(EnvSubscriptionID); ok && v != "" {
		p.SubscriptionID = v
	}
	if v, ok := lookup(EnvEnvironment); ok && v != "" {
		p.Environment = v
	}
}

// Validate checks the IDs are UUIDs, the cloud is known and the logging settings parse.
// Empty IDs are allowed: commands that need them fail later with a clearer message.
func (p *Profile) Validate() error {
	if p.TenantID != "" {
		if _, err := uuid.Parse(p.TenantID); err != nil {
			return fmt.Errorf("%w: tenant_id %q is not a UUID", ErrInvalidProfile, p.TenantID)
		}
	}
	if p.SubscriptionID != "" {
		if _, err := uuid.Parse(p.SubscriptionID); err != nil {
			return fmt.Errorf("%w: subscription_id %q is not a UUID", ErrInvalidProfile, p.SubscriptionID)
		}
	}
	if _, err := sdk.LookupEnvironment(p.Environment); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if _, err := logging.ParseLevel(p.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidProfile, p.Logging.Level)
	}
	if p.Client.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: client.requests_per_second must not be negative", ErrInvalidProfile)
	}
	if p.Client.PollInterval != 0 && p.Client.PollInterval < time.Second {
		return fmt.Errorf("%w: client.poll_interval must be at least 1s", ErrInvalidProfile)
	}
	return nil
}

// SDKProfile converts the profile into the tenant, subscription and cloud a manager
// is authenticated against.
func (p *Profile) SDKProfile() (sdk.Profile, error) {
	env, err := sdk.LookupEnvironment(p.Environment)
	if err != nil {
		return sdk.Profile{}, err
	}
	return sdk.Profile{
		TenantID:       p.TenantID,
		SubscriptionID: p.SubscriptionID,
		Environment:    env,
	}, nil
}

// Configure applies the client settings to a service Configurable.
func Configure[M any](p *Profile, c *sdk.Configurable[M]) *sdk.Configurable[M] {
	if p.Client.RequestsPerSecond > 0 {
		c = c.WithRateLimit(p.Client.RequestsPerSecond, p.Client.Burst)
	}
	if p.Client.PollInterval > 0 {
		c = c.WithPollFrequency(p.Client.PollInterval)
	}
	if p.Client.Timeout > 0 {
		c = c.WithTimeout(p.Client.Timeout)
	}
	return c
}
