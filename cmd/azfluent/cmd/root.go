// Package cmd implements the azfluent commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaroslav/azfluent"
	"github.com/yaroslav/azfluent/internal/logging"
	"github.com/yaroslav/azfluent/pkg/profile"
)

var (
	// Version information (set at build time via ldflags)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	profilePath    string
	tenantID       string
	subscriptionID string
	environment    string
	logLevel       string
	logFormat      string
	output         string
}

var (
	opts globalOptions

	// settings is the merged profile, available once PersistentPreRunE has run.
	settings *profile.Profile
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "azfluent",
	Short: "azfluent - manage Azure identities, vaults and compute resources",
	Long: `azfluent drives the Azure Resource Manager and Azure AD Graph APIs.

Settings are read from a YAML profile (default ~/.azfluent/profile.yaml), then
overridden by AZURE_TENANT_ID, AZURE_SUBSCRIPTION_ID and AZURE_ENVIRONMENT, then
by command line flags.

Credentials come from the Azure default credential chain: environment variables,
workload identity, managed identity or the Azure CLI login.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.profilePath, "profile", profile.DefaultPath(), "Path to the profile file")
	flags.StringVar(&opts.tenantID, "tenant", "", "Azure AD tenant ID")
	flags.StringVar(&opts.subscriptionID, "subscription", "", "Azure subscription ID")
	flags.StringVar(&opts.environment, "environment", "", "Azure cloud (AzureCloud, AzureChinaCloud, AzureUSGovernment)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json, console)")
	flags.StringVarP(&opts.output, "output", "o", string(outputTable), "Output format (table, json, yaml)")
}

// loadSettings merges the profile file, environment and flags, then builds the logger.
func loadSettings(cmd *cobra.Command, _ []string) error {
	p, err := profile.Load(opts.profilePath)
	if err != nil {
		return err
	}
	p.ApplyEnv(os.LookupEnv)
	opts.apply(p)
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := parseOutput(opts.output); err != nil {
		return err
	}

	p.Logging.Component = "cli"
	l, err := logging.NewLogger(p.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	settings, logger = p, l
	logger.Debug("settings loaded",
		zap.String("command", cmd.CommandPath()),
		zap.String("profile", opts.profilePath),
		zap.String("environment", p.Environment))
	return nil
}

// apply copies the flags that were set onto p.
func (o globalOptions) apply(p *profile.Profile) {
	if o.tenantID != "" {
		p.TenantID = o.tenantID
	}
	if o.subscriptionID != "" {
		p.SubscriptionID = o.subscriptionID
	}
	if o.environment != "" {
		p.Environment = o.environment
	}
	if o.logLevel != "" {
		p.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		p.Logging.Format = logging.Format(o.logFormat)
	}
}

// connect authenticates every manager with the default credential chain.
func connect() (*azfluent.Azure, error) {
	sdkProfile, err := settings.SDKProfile()
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: azcore.ClientOptions{Cloud: sdkProfile.Env().Cloud()},
		TenantID:      sdkProfile.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return profile.Configure(settings, azfluent.Configure().WithLogger(logger)).
		Authenticate(cred, sdkProfile)
}

// commandContext returns the command's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// versionString returns formatted version information
func versionString() string {
	return fmt.Sprintf("azfluent %s (commit: %s, built: %s)",
		Version, Commit, BuildDate)
}
